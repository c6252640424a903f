package models

import (
	"time"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentCancelled = "cancelled"
	PaymentExpired   = "expired"
	PaymentFailed    = "failed"
)

type Payment struct {
	ID          string        `json:"payment_id"`
	UserID      string        `json:"user_id"`
	EventID     string        `json:"event_id"`
	RefCode     string        `json:"ref_code"`
	Amount      string        `json:"amount"` // decimal string
	Currency    string        `json:"currency"`
	Items       []PaymentItem `json:"items"`
	Status      string        `json:"status"` // pending, completed, cancelled, expired, failed
	QRCode      string        `json:"qr_code,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// PaymentItem is one attendee's share inside a payment.
type PaymentItem struct {
	AttendeeID string `json:"attendee_id"`
	Label      string `json:"label"`
	Amount     string `json:"amount"`
}

// PartyCharge is one line of the per-event payment summary: what a member
// owes for themselves or one of their family members.
type PartyCharge struct {
	AttendeeID     string `json:"attendee_id"`
	FamilyMemberID string `json:"family_member_id,omitempty"`
	Label          string `json:"label"`
	Amount         string `json:"amount"`
	Paid           bool   `json:"paid"`
}

type PaymentNotification struct {
	RefCode       string    `json:"ref_code"`
	Amount        string    `json:"amount"`
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}
