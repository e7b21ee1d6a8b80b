package cond

import (
	"errors"
	"fmt"
	"strings"
)

// ErrThresholdInvalid is returned by AtLeast for a non-positive threshold.
var ErrThresholdInvalid = errors.New("at-least threshold must be positive")

// And is satisfied when every child is. Evaluation short-circuits on the
// first unsatisfied child; observation errors propagate.
func And(conds ...Condition) Condition { return and(conds) }

type and []Condition

func (cs and) Observe(s State) (bool, error) {
	for _, c := range cs {
		ok, err := c.Observe(s)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (cs and) String() string { return joinConds([]Condition(cs), " & ") }

// Or is satisfied when any child is. Evaluation short-circuits on the first
// satisfied child; observation errors propagate.
func Or(conds ...Condition) Condition { return or(conds) }

type or []Condition

func (cs or) Observe(s State) (bool, error) {
	for _, c := range cs {
		ok, err := c.Observe(s)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (cs or) String() string { return joinConds([]Condition(cs), " | ") }

// Not inverts a condition.
func Not(c Condition) Condition { return not{c} }

type not struct{ c Condition }

func (n not) Observe(s State) (bool, error) {
	ok, err := n.c.Observe(s)
	return !ok && err == nil, err
}

func (n not) String() string { return fmt.Sprintf("!(%v)", n.c) }

// AtLeast is the counting wrapper: satisfied when the wrapped condition has
// been satisfied at least n times. It is the explicit spelling of the
// "cond >= n" form.
func AtLeast(c Countable, n int) Condition { return atLeast{c: c, n: n} }

type atLeast struct {
	c Countable
	n int
}

func (a atLeast) Observe(s State) (bool, error) {
	if a.n <= 0 {
		return false, fmt.Errorf("%w: %d", ErrThresholdInvalid, a.n)
	}
	count, err := a.c.Count(s)
	if err != nil {
		return false, err
	}
	return count >= a.n, nil
}

func (a atLeast) String() string { return fmt.Sprintf("%v >= %d", a.c, a.n) }

func joinConds(conds []Condition, sep string) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = fmt.Sprintf("%v", c)
	}
	return "(" + strings.Join(parts, sep) + ")"
}
