package timespan

import "time"

// NowFunc is an injectable time source. Components take it as an option so
// tests can pin the clock.
type NowFunc func() time.Time

// SystemNow is the default time source.
func SystemNow() time.Time {
	return time.Now()
}
