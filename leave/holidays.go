package leave

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/empowerflow/portal/generic"
	"github.com/google/uuid"
)

// DefaultUpcomingCount is how many holidays the dashboard widget shows.
const DefaultUpcomingCount = 2

var ErrInvalidHoliday = errors.New("invalid holiday")

// =============================================================================
// CALENDAR - Company holiday calendar
// =============================================================================

type Calendar struct {
	store HolidayStore
	clock generic.Clock
}

func NewCalendar(store HolidayStore, clock generic.Clock) *Calendar {
	if clock == nil {
		clock = generic.SystemClock{}
	}
	return &Calendar{store: store, clock: clock}
}

// Holidays returns the holidays of year ordered by date. Recurring
// holidays are projected into that year. Year 0 returns every stored
// holiday as-is.
func (c *Calendar) Holidays(ctx context.Context, year int) ([]generic.Holiday, error) {
	all, err := c.store.ListHolidays(ctx)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	if year == 0 {
		sortHolidays(all)
		return all, nil
	}

	out := make([]generic.Holiday, 0, len(all))
	for _, h := range all {
		if d, ok := h.OccursIn(year); ok {
			h.Date = d
			out = append(out, h)
		}
	}
	sortHolidays(out)
	return out, nil
}

// Upcoming returns the next count holidays on or after today.
// count <= 0 uses DefaultUpcomingCount.
func (c *Calendar) Upcoming(ctx context.Context, count int) ([]generic.Holiday, error) {
	if count <= 0 {
		count = DefaultUpcomingCount
	}
	all, err := c.store.ListHolidays(ctx)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}

	today := generic.TodayFrom(c.clock)
	var out []generic.Holiday
	for _, h := range all {
		if h.Recurring {
			d := h.Date.InYear(today.Year())
			if d.Before(today) {
				d = h.Date.InYear(today.Year() + 1)
			}
			h.Date = d
		}
		if h.Date.AfterOrEqual(today) {
			out = append(out, h)
		}
	}
	sortHolidays(out)
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}

// IsHoliday reports whether date is on the calendar.
func (c *Calendar) IsHoliday(ctx context.Context, date generic.TimePoint) (bool, error) {
	hs, err := c.Holidays(ctx, date.Year())
	if err != nil {
		return false, err
	}
	for _, h := range hs {
		if h.Date.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

// Add stores h, assigning an id when it has none.
func (c *Calendar) Add(ctx context.Context, h generic.Holiday) (generic.Holiday, error) {
	h.Name = strings.TrimSpace(h.Name)
	if h.Name == "" {
		return generic.Holiday{}, fmt.Errorf("%w: name is required", ErrInvalidHoliday)
	}
	if h.Date.IsZero() {
		return generic.Holiday{}, fmt.Errorf("%w: date is required", ErrInvalidHoliday)
	}
	if h.Type == "" {
		h.Type = generic.HolidayNational
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if err := c.store.SaveHoliday(ctx, h); err != nil {
		return generic.Holiday{}, fmt.Errorf("save holiday: %w", err)
	}
	return h, nil
}

// Remove deletes a holiday. Unknown ids return generic.ErrNotFound.
func (c *Calendar) Remove(ctx context.Context, id string) error {
	return c.store.DeleteHoliday(ctx, id)
}

func sortHolidays(hs []generic.Holiday) {
	sort.SliceStable(hs, func(i, j int) bool {
		return hs[i].Date.Before(hs[j].Date)
	})
}
