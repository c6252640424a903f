package models

import (
	"time"
)

const (
	EventStatusDraft     = "draft"
	EventStatusPublished = "published"
	EventStatusCancelled = "cancelled"
)

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	AllDay      bool      `json:"all_day"`
	Capacity    int       `json:"capacity"` // 0 means unlimited
	Fee         string    `json:"fee"`      // decimal string, "0" for free events
	Status      string    `json:"status"`   // draft, published, cancelled
	Rule        string    `json:"rrule,omitempty"`
	ExDates     []string  `json:"exdates,omitempty"`
}

// Occurrence is one calendar instance of an event, expanded from its
// recurrence rule.
type Occurrence struct {
	EventID  string    `json:"event_id"`
	Title    string    `json:"title"`
	Location string    `json:"location"`
	AllDay   bool      `json:"all_day"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

type EventStats struct {
	EventID      string    `json:"event_id"`
	Title        string    `json:"title"`
	Capacity     int       `json:"capacity"`
	GoingCount   int       `json:"going_count"`
	MaybeCount   int       `json:"maybe_count"`
	WaitlistSize int       `json:"waitlist_size"`
	PaidCount    int       `json:"paid_count"`
	StartTime    time.Time `json:"start_time"`
}

// OpenForRSVP reports whether members may still change their attendance.
// Draft and cancelled events never accept RSVPs, published ones stop at the
// event end.
func (e *Event) OpenForRSVP(now time.Time) bool {
	if e.Status != EventStatusPublished {
		return false
	}
	return now.Before(e.EndTime)
}

// HasCapacity reports whether another going attendee fits. going counts
// confirmed attendees only, never the waitlist.
func (e *Event) HasCapacity(going int) bool {
	if e.Capacity <= 0 {
		return true
	}
	return going < e.Capacity
}
