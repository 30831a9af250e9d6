package generic

import "time"

// Clock is the source of "now". Inject a FixedClock in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// ClockAt is a FixedClock at midnight UTC of the given day.
func ClockAt(year int, month time.Month, day int) FixedClock {
	return FixedClock{T: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// TodayFrom returns the current calendar day according to c.
func TodayFrom(c Clock) TimePoint {
	if c == nil {
		c = SystemClock{}
	}
	return DayOf(c.Now())
}
