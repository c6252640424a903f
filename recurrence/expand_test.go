package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dt(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func mustRule(t *testing.T, s string) *Rule {
	t.Helper()
	r, err := Parse(s)
	require.NoError(t, err)
	return r
}

func starts(occs []Occurrence) []time.Time {
	out := make([]time.Time, len(occs))
	for i, o := range occs {
		out[i] = o.Start
	}
	return out
}

func TestExpandSingleInstance(t *testing.T) {
	start := dt(2026, time.March, 10, 18, 0)
	end := dt(2026, time.March, 10, 20, 0)

	t.Run("inside window", func(t *testing.T) {
		occs := Expand(nil, start, end, dt(2026, time.March, 1, 0, 0), dt(2026, time.April, 1, 0, 0), nil)
		require.Len(t, occs, 1)
		assert.Equal(t, start, occs[0].Start)
		assert.Equal(t, end, occs[0].End)
	})

	t.Run("window after event", func(t *testing.T) {
		occs := Expand(nil, start, end, dt(2026, time.April, 1, 0, 0), dt(2026, time.May, 1, 0, 0), nil)
		assert.Empty(t, occs)
	})

	t.Run("window overlaps tail", func(t *testing.T) {
		occs := Expand(nil, start, end, dt(2026, time.March, 10, 19, 0), dt(2026, time.April, 1, 0, 0), nil)
		assert.Len(t, occs, 1)
	})

	t.Run("empty window", func(t *testing.T) {
		occs := Expand(nil, start, end, start, start, nil)
		assert.Empty(t, occs)
	})
}

func TestExpandDaily(t *testing.T) {
	start := dt(2026, time.March, 2, 9, 0)
	end := dt(2026, time.March, 2, 10, 0)

	t.Run("count bound", func(t *testing.T) {
		occs := Expand(mustRule(t, "FREQ=DAILY;COUNT=3"), start, end,
			dt(2026, time.March, 1, 0, 0), dt(2026, time.April, 1, 0, 0), nil)
		assert.Equal(t, []time.Time{
			dt(2026, time.March, 2, 9, 0),
			dt(2026, time.March, 3, 9, 0),
			dt(2026, time.March, 4, 9, 0),
		}, starts(occs))
		assert.Equal(t, dt(2026, time.March, 4, 10, 0), occs[2].End)
	})

	t.Run("interval with window cut", func(t *testing.T) {
		occs := Expand(mustRule(t, "FREQ=DAILY;INTERVAL=2"), start, end,
			dt(2026, time.March, 2, 0, 0), dt(2026, time.March, 9, 0, 0), nil)
		assert.Equal(t, []time.Time{
			dt(2026, time.March, 2, 9, 0),
			dt(2026, time.March, 4, 9, 0),
			dt(2026, time.March, 6, 9, 0),
			dt(2026, time.March, 8, 9, 0),
		}, starts(occs))
	})

	t.Run("window skips earlier instances", func(t *testing.T) {
		occs := Expand(mustRule(t, "FREQ=DAILY"), start, end,
			dt(2026, time.March, 10, 0, 0), dt(2026, time.March, 12, 0, 0), nil)
		assert.Equal(t, []time.Time{
			dt(2026, time.March, 10, 9, 0),
			dt(2026, time.March, 11, 9, 0),
		}, starts(occs))
	})

	t.Run("until is inclusive", func(t *testing.T) {
		occs := Expand(mustRule(t, "FREQ=DAILY;UNTIL=20260305T090000Z"), start, end,
			dt(2026, time.March, 1, 0, 0), dt(2026, time.April, 1, 0, 0), nil)
		require.Len(t, occs, 4)
		assert.Equal(t, dt(2026, time.March, 5, 9, 0), occs[3].Start)
	})
}

func TestExpandWeekly(t *testing.T) {
	t.Run("multiple days per week", func(t *testing.T) {
		start := dt(2026, time.March, 2, 18, 0) // a Monday
		occs := Expand(mustRule(t, "FREQ=WEEKLY;BYDAY=MO,WE;COUNT=5"), start, start.Add(time.Hour),
			dt(2026, time.March, 1, 0, 0), dt(2026, time.April, 1, 0, 0), nil)
		assert.Equal(t, []time.Time{
			dt(2026, time.March, 2, 18, 0),
			dt(2026, time.March, 4, 18, 0),
			dt(2026, time.March, 9, 18, 0),
			dt(2026, time.March, 11, 18, 0),
			dt(2026, time.March, 16, 18, 0),
		}, starts(occs))
	})

	t.Run("days before the series start are not instances", func(t *testing.T) {
		start := dt(2026, time.March, 4, 18, 0) // a Wednesday
		occs := Expand(mustRule(t, "FREQ=WEEKLY;BYDAY=MO,WE;COUNT=3"), start, start.Add(time.Hour),
			dt(2026, time.March, 1, 0, 0), dt(2026, time.April, 1, 0, 0), nil)
		assert.Equal(t, []time.Time{
			dt(2026, time.March, 4, 18, 0),
			dt(2026, time.March, 9, 18, 0),
			dt(2026, time.March, 11, 18, 0),
		}, starts(occs))
	})

	t.Run("biweekly", func(t *testing.T) {
		start := dt(2026, time.March, 3, 10, 0) // a Tuesday
		occs := Expand(mustRule(t, "FREQ=WEEKLY;INTERVAL=2;BYDAY=TU"), start, start.Add(time.Hour),
			dt(2026, time.March, 1, 0, 0), dt(2026, time.April, 1, 0, 0), nil)
		assert.Equal(t, []time.Time{
			dt(2026, time.March, 3, 10, 0),
			dt(2026, time.March, 17, 10, 0),
			dt(2026, time.March, 31, 10, 0),
		}, starts(occs))
	})
}

func TestExpandMonthly(t *testing.T) {
	t.Run("short months are skipped for day 31", func(t *testing.T) {
		start := dt(2026, time.January, 31, 12, 0)
		occs := Expand(mustRule(t, "FREQ=MONTHLY"), start, start.Add(time.Hour),
			dt(2026, time.January, 1, 0, 0), dt(2027, time.January, 1, 0, 0), nil)
		require.Len(t, occs, 7)
		assert.Equal(t, dt(2026, time.January, 31, 12, 0), occs[0].Start)
		assert.Equal(t, dt(2026, time.March, 31, 12, 0), occs[1].Start)
		assert.Equal(t, dt(2026, time.December, 31, 12, 0), occs[6].Start)
	})

	t.Run("by month day", func(t *testing.T) {
		start := dt(2026, time.March, 1, 8, 0)
		occs := Expand(mustRule(t, "FREQ=MONTHLY;BYMONTHDAY=1,15;COUNT=4"), start, start.Add(time.Hour),
			dt(2026, time.January, 1, 0, 0), dt(2027, time.January, 1, 0, 0), nil)
		assert.Equal(t, []time.Time{
			dt(2026, time.March, 1, 8, 0),
			dt(2026, time.March, 15, 8, 0),
			dt(2026, time.April, 1, 8, 0),
			dt(2026, time.April, 15, 8, 0),
		}, starts(occs))
	})

	t.Run("second tuesday", func(t *testing.T) {
		start := dt(2026, time.March, 10, 19, 0)
		occs := Expand(mustRule(t, "FREQ=MONTHLY;BYDAY=2TU;COUNT=3"), start, start.Add(time.Hour),
			dt(2026, time.January, 1, 0, 0), dt(2027, time.January, 1, 0, 0), nil)
		assert.Equal(t, []time.Time{
			dt(2026, time.March, 10, 19, 0),
			dt(2026, time.April, 14, 19, 0),
			dt(2026, time.May, 12, 19, 0),
		}, starts(occs))
	})

	t.Run("last friday", func(t *testing.T) {
		start := dt(2026, time.March, 27, 19, 0)
		occs := Expand(mustRule(t, "FREQ=MONTHLY;BYDAY=-1FR;COUNT=2"), start, start.Add(time.Hour),
			dt(2026, time.January, 1, 0, 0), dt(2027, time.January, 1, 0, 0), nil)
		assert.Equal(t, []time.Time{
			dt(2026, time.March, 27, 19, 0),
			dt(2026, time.April, 24, 19, 0),
		}, starts(occs))
	})
}

func TestExpandYearlyLeapDay(t *testing.T) {
	start := dt(2024, time.February, 29, 10, 0)
	occs := Expand(mustRule(t, "FREQ=YEARLY"), start, start.Add(time.Hour),
		dt(2024, time.January, 1, 0, 0), dt(2029, time.January, 1, 0, 0), nil)
	assert.Equal(t, []time.Time{
		dt(2024, time.February, 29, 10, 0),
		dt(2028, time.February, 29, 10, 0),
	}, starts(occs))
}

func TestExpandExceptionDates(t *testing.T) {
	start := dt(2026, time.March, 2, 9, 0)
	end := dt(2026, time.March, 2, 10, 0)
	rule := "FREQ=DAILY;COUNT=5"

	t.Run("exact instant still consumes count", func(t *testing.T) {
		occs := Expand(mustRule(t, rule), start, end,
			dt(2026, time.March, 1, 0, 0), dt(2026, time.April, 1, 0, 0),
			[]time.Time{dt(2026, time.March, 4, 9, 0)})
		assert.Equal(t, []time.Time{
			dt(2026, time.March, 2, 9, 0),
			dt(2026, time.March, 3, 9, 0),
			dt(2026, time.March, 5, 9, 0),
			dt(2026, time.March, 6, 9, 0),
		}, starts(occs))
	})

	t.Run("midnight exception excludes the whole day", func(t *testing.T) {
		occs := Expand(mustRule(t, rule), start, end,
			dt(2026, time.March, 1, 0, 0), dt(2026, time.April, 1, 0, 0),
			[]time.Time{dt(2026, time.March, 4, 9, 0), dt(2026, time.March, 5, 0, 0)})
		assert.Equal(t, []time.Time{
			dt(2026, time.March, 2, 9, 0),
			dt(2026, time.March, 3, 9, 0),
			dt(2026, time.March, 6, 9, 0),
		}, starts(occs))
	})
}

func TestExpandSpanningOccurrence(t *testing.T) {
	// Runs 22:00 to 02:00 the next day; the first instance leaks into a
	// window that starts at midnight.
	start := dt(2026, time.March, 2, 22, 0)
	end := dt(2026, time.March, 3, 2, 0)
	occs := Expand(mustRule(t, "FREQ=DAILY;COUNT=2"), start, end,
		dt(2026, time.March, 3, 0, 0), dt(2026, time.March, 3, 12, 0), nil)
	require.Len(t, occs, 1)
	assert.Equal(t, start, occs[0].Start)
}

func TestExpandKeepsWallClockAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// US clocks spring forward on 2026-03-08.
	start := time.Date(2026, time.March, 7, 9, 0, 0, 0, loc)
	occs := Expand(mustRule(t, "FREQ=DAILY;COUNT=3"), start, start.Add(time.Hour),
		time.Date(2026, time.March, 1, 0, 0, 0, 0, loc),
		time.Date(2026, time.April, 1, 0, 0, 0, 0, loc), nil)

	require.Len(t, occs, 3)
	for _, occ := range occs {
		assert.Equal(t, 9, occ.Start.Hour())
	}
	_, beforeOffset := occs[0].Start.Zone()
	_, afterOffset := occs[2].Start.Zone()
	assert.NotEqual(t, beforeOffset, afterOffset)
}

func TestExpandBoundsUnboundedRules(t *testing.T) {
	start := dt(2026, time.January, 1, 9, 0)
	occs := Expand(mustRule(t, "FREQ=DAILY"), start, start.Add(time.Hour),
		dt(2026, time.January, 1, 0, 0), dt(2126, time.January, 1, 0, 0), nil)
	assert.Greater(t, len(occs), 1000)
	assert.Less(t, len(occs), maxSteps)
}
