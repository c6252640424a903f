package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"club-system/internal/services"
)

type AdminHandler struct {
	app      *pocketbase.PocketBase
	waitlist *services.WaitlistService
}

func NewAdminHandler(app *pocketbase.PocketBase, waitlist *services.WaitlistService) *AdminHandler {
	return &AdminHandler{
		app:      app,
		waitlist: waitlist,
	}
}

// GetWaitlistDashboard returns attendance stats for every event that
// currently has a waitlist, the longest queue first.
func (h *AdminHandler) GetWaitlistDashboard(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	stats, err := h.waitlist.Dashboard(e.Request.Context())
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, stats)
}

// GetWaitlistDetails returns one event's queue in promotion order.
func (h *AdminHandler) GetWaitlistDetails(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	eventID := e.Request.URL.Query().Get("event_id")
	if eventID == "" {
		return apis.NewBadRequestError("Event ID required", nil)
	}
	ctx := e.Request.Context()

	entries, err := h.waitlist.Details(ctx, eventID)
	if err != nil {
		return apiError(err)
	}
	stats, err := h.waitlist.Stats(ctx, eventID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"stats": stats, "entries": entries})
}

// GetEventStats returns the attendance counters for one event.
func (h *AdminHandler) GetEventStats(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	stats, err := h.waitlist.Stats(e.Request.Context(), e.Request.PathValue("eventId"))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, stats)
}

// ForcePromote runs a promotion pass for an event immediately instead of
// waiting for the sweeper.
func (h *AdminHandler) ForcePromote(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	var req struct {
		EventID string `json:"event_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EventID == "" {
		return apis.NewBadRequestError("Event ID required", nil)
	}

	promoted, err := h.waitlist.Promote(e.Request.Context(), req.EventID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"promoted": promoted})
}

// RemoveFromWaitlist drops one attendee from an event's queue.
func (h *AdminHandler) RemoveFromWaitlist(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	var req struct {
		EventID    string `json:"event_id"`
		AttendeeID string `json:"attendee_id"`
		Reason     string `json:"reason"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EventID == "" || req.AttendeeID == "" {
		return apis.NewBadRequestError("Event ID and attendee ID required", nil)
	}

	slog.Info("admin removing attendee from waitlist",
		"admin", e.Auth.Id, "event", req.EventID, "attendee", req.AttendeeID, "reason", req.Reason)

	if err := h.waitlist.Remove(e.Request.Context(), req.EventID, req.AttendeeID, req.Reason); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Removed from waitlist"})
}
