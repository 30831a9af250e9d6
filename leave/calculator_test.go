package leave_test

import (
	"testing"
	"time"

	"github.com/empowerflow/portal/generic"
	"github.com/empowerflow/portal/leave"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func day(s string) generic.TimePoint {
	tp, err := generic.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return tp
}

func TestCalculateDays(t *testing.T) {
	const (
		full   = leave.SessionFull
		first  = leave.SessionFirstHalf
		second = leave.SessionSecondHalf
	)

	tests := []struct {
		name         string
		start, end   string
		startSession leave.Session
		endSession   leave.Session
		want         float64
	}{
		{"single full day", "2024-02-01", "2024-02-01", full, full, 1},
		{"first then second half same day", "2024-02-01", "2024-02-01", first, second, 1},
		{"second then first half same day", "2024-02-01", "2024-02-01", second, first, 1},
		{"first half only", "2024-02-01", "2024-02-01", first, first, 0.5},
		{"second half only", "2024-02-01", "2024-02-01", second, second, 0.5},
		{"half and full same day", "2024-02-01", "2024-02-01", first, full, 0.5},
		{"full and half same day", "2024-02-01", "2024-02-01", full, second, 0.5},
		{"three full days", "2024-01-10", "2024-01-12", full, full, 3},
		{"start afternoon", "2024-01-10", "2024-01-12", second, full, 2.5},
		{"end morning", "2024-01-10", "2024-01-12", full, first, 2.5},
		{"afternoon to morning", "2024-01-10", "2024-01-12", second, first, 2},
		{"two days afternoon to morning", "2024-01-10", "2024-01-11", second, first, 1},
		{"first half start is a full first day", "2024-01-10", "2024-01-11", first, second, 2},
		{"across month end", "2024-01-30", "2024-02-02", full, full, 4},
		{"across leap day", "2024-02-28", "2024-03-01", full, full, 3},
		{"across year end", "2023-12-31", "2024-01-01", full, full, 2},
		{"end before start", "2024-01-12", "2024-01-10", full, full, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := leave.CalculateDays(day(tt.start), day(tt.end), tt.startSession, tt.endSession)
			assert.True(t, got.Value.Equal(decimal.NewFromFloat(tt.want)), "got %s, want %v", got, tt.want)
			assert.Equal(t, generic.UnitDays, got.Unit)
		})
	}
}

func TestCalculateDays_Properties(t *testing.T) {
	sessions := []leave.Session{leave.SessionFull, leave.SessionFirstHalf, leave.SessionSecondHalf}
	start := generic.NewTimePoint(2024, time.March, 4)
	half := decimal.NewFromFloat(0.5)

	for span := 0; span < 15; span++ {
		end := start.AddDays(span)
		for _, ss := range sessions {
			for _, es := range sessions {
				got := leave.CalculateDays(start, end, ss, es)

				// multiples of 0.5, never negative, never above the inclusive span
				assert.True(t, got.Value.Mod(half).IsZero(), "%s not a multiple of 0.5", got)
				assert.False(t, got.IsNegative())
				assert.True(t, got.Value.LessThanOrEqual(decimal.NewFromInt(int64(span+1))))
				assert.True(t, got.IsPositive(), "valid range charges at least half a day")

				// pure
				assert.True(t, got.Equal(leave.CalculateDays(start, end, ss, es)))
			}
		}
	}
}
