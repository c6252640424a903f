package models

import (
	"time"

	"club-system/internal/status"
)

const (
	RSVPGoing      = "going"
	RSVPMaybe      = "maybe"
	RSVPNotGoing   = "not_going"
	RSVPWaitlisted = "waitlisted"
)

type Attendee struct {
	ID               string     `json:"id"`
	EventID          string     `json:"event_id"`
	UserID           string     `json:"user_id"`
	FamilyMemberID   string     `json:"family_member_id,omitempty"`
	DisplayName      string     `json:"display_name"`
	Status           string     `json:"status"` // going, maybe, not_going, waitlisted
	WaitlistPosition int        `json:"waitlist_position,omitempty"`
	Paid             bool       `json:"paid"`
	PromotedAt       *time.Time `json:"promoted_at,omitempty"`
}

type FamilyMember struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	BirthYear int    `json:"birth_year,omitempty"`
}

// Roster groups an event's attendees by status. Waitlist is ordered by
// position, the other buckets by join time.
type Roster struct {
	Going    []Attendee `json:"going"`
	Maybe    []Attendee `json:"maybe"`
	NotGoing []Attendee `json:"not_going"`
	Waitlist []Attendee `json:"waitlist"`
}

// IsAttending reports whether a status represents an intent to attend.
// Waitlisted counts: those attendees hold a claim on a future spot.
func IsAttending(s string) bool {
	return s == RSVPGoing || s == RSVPWaitlisted
}

// ValidRequestedStatus reports whether members may ask for this status
// directly. Waitlisted is always assigned by the server, never requested.
func ValidRequestedStatus(s string) bool {
	switch s {
	case RSVPGoing, RSVPMaybe, RSVPNotGoing:
		return true
	}
	return false
}

// CheckPrimaryChange gates a primary member's own RSVP change.
// attendingFamily is how many of their family members are currently going
// or waitlisted for the same event. A primary cannot abandon an event while
// family members still attend through them.
func CheckPrimaryChange(newStatus string, attendingFamily int) error {
	if !ValidRequestedStatus(newStatus) {
		return status.ErrInvalidStatus
	}
	if newStatus != RSVPGoing && attendingFamily > 0 {
		return status.ErrRSVPLocked
	}
	return nil
}

// CheckFamilyChange gates an RSVP change for a family member.
// primaryStatus is the primary member's current RSVP for the event, empty
// when they have none.
func CheckFamilyChange(newStatus, primaryStatus string) error {
	if !ValidRequestedStatus(newStatus) {
		return status.ErrInvalidStatus
	}
	if newStatus == RSVPGoing && !IsAttending(primaryStatus) {
		return status.ErrPrimaryNotGoing
	}
	return nil
}

// CheckPrimaryDelete gates removing a primary member's RSVP record
// entirely. Same lock as CheckPrimaryChange: family members attending
// through them must be withdrawn first.
func CheckPrimaryDelete(attendingFamily int) error {
	if attendingFamily > 0 {
		return status.ErrRSVPLocked
	}
	return nil
}
