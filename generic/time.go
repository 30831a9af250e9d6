package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME POINT - Calendar day abstraction
// =============================================================================

// TimePoint is a calendar day. Constructors keep Time at midnight UTC;
// comparisons ignore any time of day a caller sets directly.
type TimePoint struct {
	Time time.Time
}

// DateLayout is the wire and storage format of a calendar day.
const DateLayout = "2006-01-02"

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates t to its calendar day, keeping t's wall-clock date.
func DayOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DayOf(t), nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool       { return tp.day().Before(other.day()) }
func (tp TimePoint) Equal(other TimePoint) bool        { return tp.day().Equal(other.day()) }
func (tp TimePoint) After(other TimePoint) bool        { return tp.day().After(other.day()) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool { return !tp.Before(other) }

func (tp TimePoint) day() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) Day() int          { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

func (tp TimePoint) String() string { return tp.Time.Format(DateLayout) }

// InYear returns the same month/day in another year. Feb 29 becomes Mar 1
// in non-leap years, which is what time.Date normalization gives.
func (tp TimePoint) InYear(year int) TimePoint {
	return NewTimePoint(year, tp.Month(), tp.Day())
}

// =============================================================================
// HOLIDAY - Company calendar entry
// =============================================================================

type HolidayType string

const (
	HolidayNational HolidayType = "National Holiday"
	HolidayOptional HolidayType = "Optional Holiday"
)

// Holiday represents a company holiday.
type Holiday struct {
	ID        string
	CompanyID string // Empty string = global/default holidays
	Date      TimePoint
	Name      string // e.g., "Christmas Day", "Independence Day"
	Type      HolidayType
	Recurring bool // true = same month/day every year
}

// OccursIn returns the holiday's date in the given year and whether it
// falls in that year at all.
func (h Holiday) OccursIn(year int) (TimePoint, bool) {
	if h.Recurring {
		return h.Date.InYear(year), true
	}
	return h.Date, h.Date.Year() == year
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

// DaysBetween counts calendar days from one day to another (0 when equal).
func DaysBetween(from, to TimePoint) int { return int(to.day().Sub(from.day()).Hours() / 24) }
