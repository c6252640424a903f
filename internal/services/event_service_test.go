package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"club-system/models"
)

func TestParseExDates(t *testing.T) {
	exdates, err := ParseExDates([]string{"2026-09-08T18:00:00Z", "2026-09-15"})
	require.NoError(t, err)
	require.Len(t, exdates, 2)

	assert.True(t, exdates[0].Equal(time.Date(2026, 9, 8, 18, 0, 0, 0, time.UTC)))
	// a bare date lands on midnight and excludes the whole day
	assert.True(t, exdates[1].Equal(time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)))
}

func TestParseExDates_Invalid(t *testing.T) {
	_, err := ParseExDates([]string{"next tuesday"})
	assert.Error(t, err)
}

func TestParseExDates_Empty(t *testing.T) {
	exdates, err := ParseExDates(nil)
	require.NoError(t, err)
	assert.Empty(t, exdates)
}

func TestExpandEvent_OneShot(t *testing.T) {
	start := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	event := &models.Event{
		ID:        "evt1",
		Title:     "Annual meeting",
		Location:  "Club house",
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
	}

	occurrences, err := expandEvent(event,
		time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, occurrences, 1)

	assert.Equal(t, "evt1", occurrences[0].EventID)
	assert.Equal(t, "Annual meeting", occurrences[0].Title)
	assert.Equal(t, "Club house", occurrences[0].Location)
	assert.True(t, occurrences[0].Start.Equal(start))
	assert.True(t, occurrences[0].End.Equal(start.Add(2*time.Hour)))
}

func TestExpandEvent_OneShotOutsideWindow(t *testing.T) {
	start := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	event := &models.Event{ID: "evt1", StartTime: start, EndTime: start.Add(time.Hour)}

	occurrences, err := expandEvent(event,
		time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, occurrences)
}

func TestExpandEvent_WeeklyWithExDate(t *testing.T) {
	// Tuesday evenings through September, the 15th cancelled
	start := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	event := &models.Event{
		ID:        "evt1",
		Title:     "Weekly training",
		StartTime: start,
		EndTime:   start.Add(90 * time.Minute),
		Rule:      "FREQ=WEEKLY",
		ExDates:   []string{"2026-09-15"},
	}

	occurrences, err := expandEvent(event,
		time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, occurrences, 4)

	want := []time.Time{
		start,
		start.AddDate(0, 0, 7),
		start.AddDate(0, 0, 21),
		start.AddDate(0, 0, 28),
	}
	for i, occurrence := range occurrences {
		assert.True(t, occurrence.Start.Equal(want[i]), "occurrence %d = %s", i, occurrence.Start)
		assert.Equal(t, 90*time.Minute, occurrence.End.Sub(occurrence.Start))
	}
}

func TestExpandEvent_BadRule(t *testing.T) {
	event := &models.Event{
		ID:        "evt1",
		StartTime: time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC),
		Rule:      "FREQ=SOMETIMES",
	}

	_, err := expandEvent(event,
		time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}
