package models

import (
	"time"

	"club-system/internal/status"
)

const (
	RequestPending            = "pending"
	RequestNeedsClarification = "needs_clarification"
	RequestApproved           = "approved"
	RequestRejected           = "rejected"
)

const (
	AccountPending  = "pending"
	AccountActive   = "active"
	AccountRejected = "rejected"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

type AccountRequest struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	RefCode   string     `json:"ref_code"`
	Status    string     `json:"status"` // pending, needs_clarification, approved, rejected
	Note      string     `json:"note,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
	DecidedBy string     `json:"decided_by,omitempty"`
}

type ApprovalMessage struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	AuthorID  string    `json:"author_id"`
	FromAdmin bool      `json:"from_admin"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// RequestDecided reports whether the request reached a terminal state.
func RequestDecided(s string) bool {
	return s == RequestApproved || s == RequestRejected
}

// CheckDecision gates an admin decision on an account request. Terminal
// requests stay closed, everything else may move to any of the four states
// except back to itself.
func CheckDecision(current, next string) error {
	switch next {
	case RequestPending, RequestNeedsClarification, RequestApproved, RequestRejected:
	default:
		return status.ErrInvalidDecision
	}
	if RequestDecided(current) {
		return status.ErrRequestClosed
	}
	if current == next {
		return status.ErrInvalidDecision
	}
	return nil
}

// AccountStatusFor maps a decided request status onto the account status.
func AccountStatusFor(requestStatus string) string {
	switch requestStatus {
	case RequestApproved:
		return AccountActive
	case RequestRejected:
		return AccountRejected
	}
	return AccountPending
}
