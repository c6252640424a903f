package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, r *Rule)
	}{
		{
			name:  "daily defaults",
			input: "FREQ=DAILY",
			check: func(t *testing.T, r *Rule) {
				assert.Equal(t, Daily, r.Freq)
				assert.Equal(t, 1, r.Interval)
				assert.Zero(t, r.Count)
				assert.True(t, r.Until.IsZero())
			},
		},
		{
			name:  "prefixed weekly with interval and days",
			input: "RRULE:FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE",
			check: func(t *testing.T, r *Rule) {
				assert.Equal(t, Weekly, r.Freq)
				assert.Equal(t, 2, r.Interval)
				assert.Equal(t, []WeekdayOrd{{Weekday: time.Monday}, {Weekday: time.Wednesday}}, r.ByDay)
			},
		},
		{
			name:  "monthly by month day sorts values",
			input: "FREQ=MONTHLY;BYMONTHDAY=15,1",
			check: func(t *testing.T, r *Rule) {
				assert.Equal(t, []int{1, 15}, r.ByMonthDay)
			},
		},
		{
			name:  "monthly second tuesday",
			input: "FREQ=MONTHLY;BYDAY=2TU",
			check: func(t *testing.T, r *Rule) {
				assert.Equal(t, []WeekdayOrd{{Weekday: time.Tuesday, Ord: 2}}, r.ByDay)
			},
		},
		{
			name:  "monthly last friday",
			input: "FREQ=MONTHLY;BYDAY=-1FR",
			check: func(t *testing.T, r *Rule) {
				assert.Equal(t, []WeekdayOrd{{Weekday: time.Friday, Ord: -1}}, r.ByDay)
			},
		},
		{
			name:  "until basic utc form",
			input: "FREQ=DAILY;UNTIL=20261231T000000Z",
			check: func(t *testing.T, r *Rule) {
				assert.Equal(t, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), r.Until)
			},
		},
		{
			name:  "until bare date covers the whole day",
			input: "FREQ=DAILY;UNTIL=20261231",
			check: func(t *testing.T, r *Rule) {
				assert.Equal(t, time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC), r.Until)
			},
		},
		{
			name:  "count wins over until",
			input: "FREQ=DAILY;COUNT=10;UNTIL=20261231T000000Z",
			check: func(t *testing.T, r *Rule) {
				assert.Equal(t, 10, r.Count)
				assert.True(t, r.Until.IsZero())
			},
		},
		{
			name:  "lowercase accepted",
			input: "freq=weekly;byday=fr",
			check: func(t *testing.T, r *Rule) {
				assert.Equal(t, Weekly, r.Freq)
				assert.Equal(t, []WeekdayOrd{{Weekday: time.Friday}}, r.ByDay)
			},
		},
		{
			name:  "wkst tolerated",
			input: "FREQ=WEEKLY;WKST=SU;BYDAY=SA",
			check: func(t *testing.T, r *Rule) {
				assert.Equal(t, []WeekdayOrd{{Weekday: time.Saturday}}, r.ByDay)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse(tt.input)
			require.NoError(t, err)
			tt.check(t, r)
		})
	}
}

func TestParseRejectsInvalidRules(t *testing.T) {
	inputs := []string{
		"",
		"INTERVAL=2",
		"FREQ=HOURLY",
		"FREQ=DAILY;INTERVAL=0",
		"FREQ=DAILY;COUNT=0",
		"FREQ=DAILY;UNTIL=notadate",
		"FREQ=WEEKLY;BYDAY=XX",
		"FREQ=WEEKLY;BYDAY=2TU",
		"FREQ=MONTHLY;BYDAY=9MO",
		"FREQ=DAILY;BYMONTHDAY=5",
		"FREQ=MONTHLY;BYMONTHDAY=0",
		"FREQ=MONTHLY;BYMONTHDAY=32",
		"FREQ=MONTHLY;BYDAY=MO;BYMONTHDAY=1",
		"FREQ=DAILY;FOO=1",
		"FREQ=DAILY;BYDAY",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestRuleString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"FREQ=DAILY", "FREQ=DAILY"},
		{"FREQ=WEEKLY;BYDAY=MO,WE;INTERVAL=2;COUNT=10", "FREQ=WEEKLY;INTERVAL=2;COUNT=10;BYDAY=MO,WE"},
		{"FREQ=MONTHLY;BYDAY=-1FR", "FREQ=MONTHLY;BYDAY=-1FR"},
		{"FREQ=MONTHLY;BYMONTHDAY=15,1", "FREQ=MONTHLY;BYMONTHDAY=1,15"},
		{"FREQ=YEARLY;UNTIL=20301231T235959Z", "FREQ=YEARLY;UNTIL=20301231T235959Z"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.String())

			again, err := Parse(r.String())
			require.NoError(t, err)
			assert.Equal(t, r, again)
		})
	}
}
