package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"club-system/internal/status"
)

func TestOpenForRSVP(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		event Event
		want  bool
	}{
		{
			name:  "published future event",
			event: Event{Status: EventStatusPublished, EndTime: now.Add(48 * time.Hour)},
			want:  true,
		},
		{
			name:  "published event already ended",
			event: Event{Status: EventStatusPublished, EndTime: now.Add(-time.Hour)},
			want:  false,
		},
		{
			name:  "draft event",
			event: Event{Status: EventStatusDraft, EndTime: now.Add(48 * time.Hour)},
			want:  false,
		},
		{
			name:  "cancelled event",
			event: Event{Status: EventStatusCancelled, EndTime: now.Add(48 * time.Hour)},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.OpenForRSVP(now))
		})
	}
}

func TestHasCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		going    int
		want     bool
	}{
		{"unlimited", 0, 5000, true},
		{"spots left", 20, 19, true},
		{"exactly full", 20, 20, false},
		{"over full", 20, 25, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Event{Capacity: tt.capacity}
			assert.Equal(t, tt.want, e.HasCapacity(tt.going))
		})
	}
}

func TestCheckPrimaryChange(t *testing.T) {
	tests := []struct {
		name            string
		newStatus       string
		attendingFamily int
		wantErr         error
	}{
		{"going is always allowed", RSVPGoing, 3, nil},
		{"not going with no family attending", RSVPNotGoing, 0, nil},
		{"not going while family attends", RSVPNotGoing, 1, status.ErrRSVPLocked},
		{"maybe while family attends", RSVPMaybe, 2, status.ErrRSVPLocked},
		{"maybe with no family attending", RSVPMaybe, 0, nil},
		{"waitlisted cannot be requested", RSVPWaitlisted, 0, status.ErrInvalidStatus},
		{"unknown status", "perhaps", 0, status.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPrimaryChange(tt.newStatus, tt.attendingFamily)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestCheckFamilyChange(t *testing.T) {
	tests := []struct {
		name          string
		newStatus     string
		primaryStatus string
		wantErr       error
	}{
		{"family going with primary going", RSVPGoing, RSVPGoing, nil},
		{"family going with primary waitlisted", RSVPGoing, RSVPWaitlisted, nil},
		{"family going with primary maybe", RSVPGoing, RSVPMaybe, status.ErrPrimaryNotGoing},
		{"family going with primary not going", RSVPGoing, RSVPNotGoing, status.ErrPrimaryNotGoing},
		{"family going without primary rsvp", RSVPGoing, "", status.ErrPrimaryNotGoing},
		{"family maybe without primary rsvp", RSVPMaybe, "", nil},
		{"family withdrawing without primary rsvp", RSVPNotGoing, "", nil},
		{"waitlisted cannot be requested", RSVPWaitlisted, RSVPGoing, status.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFamilyChange(tt.newStatus, tt.primaryStatus)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestCheckPrimaryDelete(t *testing.T) {
	assert.NoError(t, CheckPrimaryDelete(0))
	assert.ErrorIs(t, CheckPrimaryDelete(2), status.ErrRSVPLocked)
}

func TestCheckDecision(t *testing.T) {
	tests := []struct {
		name    string
		current string
		next    string
		wantErr error
	}{
		{"pending to approved", RequestPending, RequestApproved, nil},
		{"pending to rejected", RequestPending, RequestRejected, nil},
		{"pending to needs clarification", RequestPending, RequestNeedsClarification, nil},
		{"clarification back to pending", RequestNeedsClarification, RequestPending, nil},
		{"clarification to approved", RequestNeedsClarification, RequestApproved, nil},
		{"approved is terminal", RequestApproved, RequestRejected, status.ErrRequestClosed},
		{"rejected is terminal", RequestRejected, RequestApproved, status.ErrRequestClosed},
		{"no self transition", RequestPending, RequestPending, status.ErrInvalidDecision},
		{"unknown target", RequestPending, "escalated", status.ErrInvalidDecision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckDecision(tt.current, tt.next)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestAccountStatusFor(t *testing.T) {
	assert.Equal(t, AccountActive, AccountStatusFor(RequestApproved))
	assert.Equal(t, AccountRejected, AccountStatusFor(RequestRejected))
	assert.Equal(t, AccountPending, AccountStatusFor(RequestNeedsClarification))
	assert.Equal(t, AccountPending, AccountStatusFor(RequestPending))
}
