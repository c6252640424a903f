package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"club-system/internal/services"
)

type CalendarHandler struct {
	app    *pocketbase.PocketBase
	events *services.EventService
}

func NewCalendarHandler(app *pocketbase.PocketBase, events *services.EventService) *CalendarHandler {
	return &CalendarHandler{
		app:    app,
		events: events,
	}
}

// GetCalendar returns every published occurrence in the requested window,
// recurring events already expanded.
func (h *CalendarHandler) GetCalendar(e *core.RequestEvent) error {
	if err := requireAuth(e); err != nil {
		return err
	}

	from, to, err := timeWindow(e)
	if err != nil {
		return apis.NewBadRequestError("Invalid time window", err)
	}

	occurrences, err := h.events.Calendar(e.Request.Context(), from, to)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"occurrences": occurrences,
		"from":        from,
		"to":          to,
	})
}

// GetEventOccurrences expands a single event over the requested window.
func (h *CalendarHandler) GetEventOccurrences(e *core.RequestEvent) error {
	if err := requireAuth(e); err != nil {
		return err
	}

	eventID := e.Request.PathValue("eventId")
	from, to, err := timeWindow(e)
	if err != nil {
		return apis.NewBadRequestError("Invalid time window", err)
	}

	occurrences, err := h.events.Occurrences(e.Request.Context(), eventID, from, to)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"occurrences": occurrences})
}

// timeWindow reads the from/to query parameters, defaulting to the next
// three months. Values are RFC 3339 timestamps or bare dates.
func timeWindow(e *core.RequestEvent) (time.Time, time.Time, error) {
	now := time.Now()
	from, to := now, now.AddDate(0, 3, 0)

	if raw := e.Request.URL.Query().Get("from"); raw != "" {
		parsed, err := parseTimeParam(raw)
		if err != nil {
			return from, to, err
		}
		from = parsed
		to = from.AddDate(0, 3, 0)
	}
	if raw := e.Request.URL.Query().Get("to"); raw != "" {
		parsed, err := parseTimeParam(raw)
		if err != nil {
			return from, to, err
		}
		to = parsed
	}

	if !from.Before(to) {
		return from, to, errors.New("from must be before to")
	}
	return from, to, nil
}

func parseTimeParam(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
