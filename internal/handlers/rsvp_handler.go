package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"club-system/internal/services"
)

type RSVPHandler struct {
	app      *pocketbase.PocketBase
	rsvp     *services.RSVPService
	waitlist *services.WaitlistService
}

func NewRSVPHandler(app *pocketbase.PocketBase, rsvp *services.RSVPService, waitlist *services.WaitlistService) *RSVPHandler {
	return &RSVPHandler{
		app:      app,
		rsvp:     rsvp,
		waitlist: waitlist,
	}
}

// SubmitRSVP creates or changes an attendance record for the caller or one
// of their family members.
func (h *RSVPHandler) SubmitRSVP(e *core.RequestEvent) error {
	if err := requireActiveMember(e); err != nil {
		return err
	}

	var req struct {
		EventID        string `json:"event_id"`
		FamilyMemberID string `json:"family_member_id"`
		Status         string `json:"status"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EventID == "" {
		return apis.NewBadRequestError("Event ID required", nil)
	}

	result, err := h.rsvp.Upsert(e.Request.Context(), e.Auth.Id, req.EventID, req.FamilyMemberID, req.Status)
	if err != nil {
		return apiError(err)
	}

	response := map[string]any{"attendee": result.Attendee}
	if result.Coerced {
		response["message"] = "Event is full, added to the waitlist"
	}
	return e.JSON(http.StatusOK, response)
}

// WithdrawRSVP removes an attendance record entirely.
func (h *RSVPHandler) WithdrawRSVP(e *core.RequestEvent) error {
	if err := requireActiveMember(e); err != nil {
		return err
	}

	var req struct {
		EventID        string `json:"event_id"`
		FamilyMemberID string `json:"family_member_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EventID == "" {
		return apis.NewBadRequestError("Event ID required", nil)
	}

	if err := h.rsvp.Withdraw(e.Request.Context(), e.Auth.Id, req.EventID, req.FamilyMemberID); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "RSVP withdrawn"})
}

// GetRoster returns an event's attendees grouped by status.
func (h *RSVPHandler) GetRoster(e *core.RequestEvent) error {
	if err := requireActiveMember(e); err != nil {
		return err
	}

	eventID := e.Request.PathValue("eventId")
	roster, err := h.rsvp.Roster(e.Request.Context(), eventID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, roster)
}

// GetMyRSVPs lists the caller's attendance across the calendar window.
func (h *RSVPHandler) GetMyRSVPs(e *core.RequestEvent) error {
	if err := requireActiveMember(e); err != nil {
		return err
	}

	from, to, err := timeWindow(e)
	if err != nil {
		return apis.NewBadRequestError("Invalid time window", err)
	}

	views, err := h.rsvp.MyRSVPs(e.Request.Context(), e.Auth.Id, from, to)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"rsvps": views, "from": from, "to": to})
}

// GetWaitlistPosition reports a queued attendee's 1-based position. Without
// an attendee_id it resolves the caller's own record.
func (h *RSVPHandler) GetWaitlistPosition(e *core.RequestEvent) error {
	if err := requireActiveMember(e); err != nil {
		return err
	}

	eventID := e.Request.PathValue("eventId")
	attendeeID := e.Request.URL.Query().Get("attendee_id")
	ctx := e.Request.Context()

	if attendeeID == "" {
		record, err := h.app.FindFirstRecordByFilter("attendees",
			"event = {:event} && user = {:user} && family_member = ''",
			map[string]any{"event": eventID, "user": e.Auth.Id})
		if err != nil {
			return apis.NewNotFoundError("No attendance record", nil)
		}
		attendeeID = record.Id
	} else {
		record, err := h.app.FindRecordById("attendees", attendeeID)
		if err != nil {
			return apis.NewNotFoundError("No attendance record", nil)
		}
		if record.GetString("user") != e.Auth.Id && !e.HasSuperuserAuth() {
			return apis.NewForbiddenError("Access denied", nil)
		}
	}

	position, err := h.waitlist.Position(ctx, eventID, attendeeID)
	if err != nil {
		return apiError(err)
	}
	size, _ := h.waitlist.QueueLength(ctx, eventID)

	return e.JSON(http.StatusOK, map[string]any{
		"attendee_id":   attendeeID,
		"position":      position,
		"waitlist_size": size,
	})
}
