package notify

// Message constructors shared by the services so every client sees the same
// payload shapes.

func WaitlistPositionMsg(eventID string, position int) map[string]any {
	return map[string]any{
		"type":     "waitlist_position",
		"event_id": eventID,
		"position": position,
	}
}

func PromotedMsg(eventID string) map[string]any {
	return map[string]any{
		"type":     "waitlist_promoted",
		"event_id": eventID,
		"status":   "going",
	}
}

func RSVPChangedMsg(eventID, attendeeID, status string) map[string]any {
	return map[string]any{
		"type":        "rsvp_changed",
		"event_id":    eventID,
		"attendee_id": attendeeID,
		"status":      status,
	}
}

func WaitlistedMsg(eventID, attendeeID string, position int) map[string]any {
	return map[string]any{
		"type":        "rsvp_waitlisted",
		"event_id":    eventID,
		"attendee_id": attendeeID,
		"position":    position,
	}
}

func RemovedFromWaitlistMsg(eventID, reason string) map[string]any {
	return map[string]any{
		"type":     "waitlist_removed",
		"event_id": eventID,
		"reason":   reason,
	}
}

func EventCancelledMsg(eventID, title string) map[string]any {
	return map[string]any{
		"type":     "event_cancelled",
		"event_id": eventID,
		"title":    title,
	}
}

func ApprovalUpdateMsg(requestID, status string) map[string]any {
	return map[string]any{
		"type":       "approval_update",
		"request_id": requestID,
		"status":     status,
	}
}

func ApprovalMessageMsg(requestID string, fromAdmin bool) map[string]any {
	return map[string]any{
		"type":       "approval_message",
		"request_id": requestID,
		"from_admin": fromAdmin,
	}
}

func NewAccountRequestMsg(requestID, refCode, name string) map[string]any {
	return map[string]any{
		"type":       "account_request",
		"request_id": requestID,
		"ref_code":   refCode,
		"name":       name,
	}
}

func PaymentCompletedMsg(refCode, eventID string) map[string]any {
	return map[string]any{
		"type":     "payment_completed",
		"ref_code": refCode,
		"event_id": eventID,
	}
}

func PaymentExpiredMsg(refCode, eventID string) map[string]any {
	return map[string]any{
		"type":     "payment_expired",
		"ref_code": refCode,
		"event_id": eventID,
	}
}

func PaymentFailedMsg(refCode, reason string) map[string]any {
	return map[string]any{
		"type":     "payment_failed",
		"ref_code": refCode,
		"reason":   reason,
	}
}
