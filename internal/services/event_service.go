package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/pocketbase/pocketbase/core"

	"club-system/internal/status"
	"club-system/models"
	"club-system/recurrence"
)

// EventService serves the calendar views: events expanded through their
// recurrence rules into concrete occurrences.
type EventService struct {
	app    core.App
	logger *slog.Logger
}

func NewEventService(app core.App, logger *slog.Logger) *EventService {
	return &EventService{app: app, logger: logger}
}

// Calendar expands all published events into the occurrences intersecting
// [from, to), sorted by start.
func (s *EventService) Calendar(ctx context.Context, from, to time.Time) ([]models.Occurrence, error) {
	records, err := s.app.FindRecordsByFilter("events",
		"status = 'published'", "start", 0, 0)
	if err != nil {
		return nil, err
	}

	occurrences := []models.Occurrence{}
	for _, r := range records {
		event := eventFromRecord(r)
		expanded, err := expandEvent(event, from, to)
		if err != nil {
			// bad rule slipped past validation: skip it, the rest of the
			// calendar should still render
			s.logger.Warn("skipping event with bad recurrence",
				"event", event.ID, "error", err)
			continue
		}
		occurrences = append(occurrences, expanded...)
	}

	sort.Slice(occurrences, func(i, j int) bool {
		return occurrences[i].Start.Before(occurrences[j].Start)
	})
	return occurrences, nil
}

// Occurrences expands one event over [from, to). Only published events are
// expandable here, drafts stay invisible outside the admin collection API.
func (s *EventService) Occurrences(ctx context.Context, eventID string, from, to time.Time) ([]models.Occurrence, error) {
	record, err := s.app.FindRecordById("events", eventID)
	if err != nil {
		return nil, status.ErrEventNotFound
	}
	event := eventFromRecord(record)
	if event.Status != models.EventStatusPublished {
		return nil, status.ErrEventNotFound
	}
	return expandEvent(event, from, to)
}

func expandEvent(event *models.Event, from, to time.Time) ([]models.Occurrence, error) {
	var rule *recurrence.Rule
	if event.Rule != "" {
		parsed, err := recurrence.Parse(event.Rule)
		if err != nil {
			return nil, err
		}
		rule = parsed
	}

	exdates, err := ParseExDates(event.ExDates)
	if err != nil {
		return nil, err
	}

	spans := recurrence.Expand(rule, event.StartTime, event.EndTime, from, to, exdates)
	occurrences := make([]models.Occurrence, len(spans))
	for i, span := range spans {
		occurrences[i] = models.Occurrence{
			EventID:  event.ID,
			Title:    event.Title,
			Location: event.Location,
			AllDay:   event.AllDay,
			Start:    span.Start,
			End:      span.End,
		}
	}
	return occurrences, nil
}

// ParseExDates parses a stored exception date list. Dates are RFC 3339; a
// bare date means the whole day is excluded.
func ParseExDates(raw []string) ([]time.Time, error) {
	exdates := make([]time.Time, 0, len(raw))
	for _, value := range raw {
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			t, err = time.Parse("2006-01-02", value)
			if err != nil {
				return nil, err
			}
		}
		exdates = append(exdates, t)
	}
	return exdates, nil
}
