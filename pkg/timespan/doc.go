// Package timespan parses human-readable timeout expressions and provides
// an injectable time source for deterministic tests.
//
// Timeout expressions take the form "<number> <unit>" where the number may
// be a decimal and the unit is seconds, minutes, hours or days:
//
//	d, err := timespan.ParseTimeout("0.1 seconds")
//	d, err = timespan.ParseTimeout("2 hours")
//
// The special expression "never" disables a timeout entirely and parses to
// the Never sentinel:
//
//	d, _ := timespan.ParseTimeout("never")
//	timespan.IsNever(d) // true
//
// Plain Go duration strings ("100ms", "1h30m") are accepted as well.
package timespan
