package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"club-system/internal/notify"
	"club-system/internal/status"
	"club-system/models"
	"club-system/monitoring"
)

// RSVPService applies the attendance policy: who may change which RSVP,
// when a full event coerces going into waitlisted, and which changes kick
// off a promotion pass.
type RSVPService struct {
	app     core.App
	promo   *PromotionManager
	notify  *notify.Service
	monitor *monitoring.Monitor
	logger  *slog.Logger
}

func NewRSVPService(app core.App, promo *PromotionManager, notifier *notify.Service, monitor *monitoring.Monitor, logger *slog.Logger) *RSVPService {
	return &RSVPService{
		app:     app,
		promo:   promo,
		notify:  notifier,
		monitor: monitor,
		logger:  logger,
	}
}

// RSVPResult is what the member gets back from an upsert. Coerced means
// they asked for going but the event was full, so they were queued instead.
type RSVPResult struct {
	Attendee models.Attendee `json:"attendee"`
	Coerced  bool            `json:"coerced"`
}

// RSVPView is one row of a member's own RSVP listing.
type RSVPView struct {
	Attendee   models.Attendee `json:"attendee"`
	EventTitle string          `json:"event_title"`
	EventStart time.Time       `json:"event_start"`
	EventEnd   time.Time       `json:"event_end"`
}

// Upsert creates or updates the caller's attendee record for an event.
// familyMemberID is empty for the account holder themself. requested must
// be going, maybe or not_going; waitlisted is only ever assigned here, when
// a going request meets a full event.
func (s *RSVPService) Upsert(ctx context.Context, userID, eventID, familyMemberID, requested string) (*RSVPResult, error) {
	if !models.ValidRequestedStatus(requested) {
		return nil, status.ErrInvalidStatus
	}

	eventRecord, err := s.app.FindRecordById("events", eventID)
	if err != nil {
		return nil, status.ErrEventNotFound
	}
	event := eventFromRecord(eventRecord)
	if !event.OpenForRSVP(time.Now()) {
		return nil, status.ErrEventNotOpen
	}

	displayName, err := s.displayName(userID, familyMemberID)
	if err != nil {
		return nil, err
	}

	var result RSVPResult
	var freedSlot, queueChanged bool

	err = s.app.RunInTransaction(func(txApp core.App) error {
		existing, _ := txApp.FindFirstRecordByFilter("attendees",
			"event = {:event} && user = {:user} && family_member = {:family}",
			dbx.Params{"event": eventID, "user": userID, "family": familyMemberID})

		prior := ""
		if existing != nil {
			prior = existing.GetString("status")
		}

		if familyMemberID == "" {
			family, err := attendingFamily(txApp, eventID, userID)
			if err != nil {
				return err
			}
			if err := models.CheckPrimaryChange(requested, family); err != nil {
				return err
			}
		} else {
			primary := ""
			if p, err := txApp.FindFirstRecordByFilter("attendees",
				"event = {:event} && user = {:user} && family_member = ''",
				dbx.Params{"event": eventID, "user": userID}); err == nil {
				primary = p.GetString("status")
			}
			if err := models.CheckFamilyChange(requested, primary); err != nil {
				return err
			}
		}

		assigned := requested
		position := 0

		if requested == models.RSVPGoing && prior != models.RSVPGoing {
			going, err := txApp.CountRecords("attendees",
				dbx.HashExp{"event": eventID, "status": models.RSVPGoing})
			if err != nil {
				return err
			}
			if !event.HasCapacity(int(going)) {
				assigned = models.RSVPWaitlisted
				result.Coerced = true
				if prior == models.RSVPWaitlisted {
					// already queued, keep the spot
					position = existing.GetInt("waitlist_position")
				} else {
					queued, err := txApp.CountRecords("attendees",
						dbx.HashExp{"event": eventID, "status": models.RSVPWaitlisted})
					if err != nil {
						return err
					}
					position = int(queued) + 1
				}
			}
		}

		record := existing
		if record == nil {
			collection, err := txApp.FindCollectionByNameOrId("attendees")
			if err != nil {
				return err
			}
			record = core.NewRecord(collection)
			record.Set("event", eventID)
			record.Set("user", userID)
			record.Set("family_member", familyMemberID)
		}
		record.Set("display_name", displayName)
		record.Set("status", assigned)
		record.Set("waitlist_position", position)

		if err := txApp.Save(record); err != nil {
			return err
		}

		freedSlot = prior == models.RSVPGoing && assigned != models.RSVPGoing
		queueChanged = assigned == models.RSVPWaitlisted ||
			(prior == models.RSVPWaitlisted && assigned != models.RSVPWaitlisted)

		result.Attendee = attendeeFromRecord(record)
		return nil
	})
	if err != nil {
		s.monitor.TrackRSVP("upsert", eventID, "rejected")
		return nil, err
	}

	s.monitor.TrackRSVP("upsert", eventID, result.Attendee.Status)
	if result.Coerced {
		s.notify.ToUser(userID, notify.WaitlistedMsg(eventID, result.Attendee.ID, result.Attendee.WaitlistPosition))
	} else {
		s.notify.ToUser(userID, notify.RSVPChangedMsg(eventID, result.Attendee.ID, result.Attendee.Status))
	}

	if freedSlot || queueChanged {
		s.promo.Trigger(eventID)
	}

	return &result, nil
}

// Withdraw deletes the caller's attendee record for an event. A primary
// cannot withdraw while family members still attend through them.
func (s *RSVPService) Withdraw(ctx context.Context, userID, eventID, familyMemberID string) error {
	eventRecord, err := s.app.FindRecordById("events", eventID)
	if err != nil {
		return status.ErrEventNotFound
	}
	if !eventFromRecord(eventRecord).OpenForRSVP(time.Now()) {
		return status.ErrEventNotOpen
	}

	prior := ""
	err = s.app.RunInTransaction(func(txApp core.App) error {
		existing, err := txApp.FindFirstRecordByFilter("attendees",
			"event = {:event} && user = {:user} && family_member = {:family}",
			dbx.Params{"event": eventID, "user": userID, "family": familyMemberID})
		if err != nil {
			return status.ErrAttendeeNotFound
		}

		if familyMemberID == "" {
			family, err := attendingFamily(txApp, eventID, userID)
			if err != nil {
				return err
			}
			if err := models.CheckPrimaryDelete(family); err != nil {
				return err
			}
		}

		prior = existing.GetString("status")
		return txApp.Delete(existing)
	})
	if err != nil {
		s.monitor.TrackRSVP("withdraw", eventID, "rejected")
		return err
	}

	s.monitor.TrackRSVP("withdraw", eventID, "success")
	if prior == models.RSVPGoing || prior == models.RSVPWaitlisted {
		s.promo.Trigger(eventID)
	}
	return nil
}

// Roster returns an event's attendees grouped by status.
func (s *RSVPService) Roster(ctx context.Context, eventID string) (*models.Roster, error) {
	if _, err := s.app.FindRecordById("events", eventID); err != nil {
		return nil, status.ErrEventNotFound
	}

	records, err := s.app.FindRecordsByFilter("attendees",
		"event = {:event}", "waitlist_position,created", 0, 0,
		dbx.Params{"event": eventID})
	if err != nil {
		return nil, err
	}

	roster := &models.Roster{
		Going:    []models.Attendee{},
		Maybe:    []models.Attendee{},
		NotGoing: []models.Attendee{},
		Waitlist: []models.Attendee{},
	}
	for _, r := range records {
		attendee := attendeeFromRecord(r)
		switch attendee.Status {
		case models.RSVPGoing:
			roster.Going = append(roster.Going, attendee)
		case models.RSVPMaybe:
			roster.Maybe = append(roster.Maybe, attendee)
		case models.RSVPNotGoing:
			roster.NotGoing = append(roster.NotGoing, attendee)
		case models.RSVPWaitlisted:
			roster.Waitlist = append(roster.Waitlist, attendee)
		}
	}
	return roster, nil
}

// MyRSVPs lists the caller's attendee records (their own and their family
// members'), optionally narrowed to events overlapping [from, to).
func (s *RSVPService) MyRSVPs(ctx context.Context, userID string, from, to time.Time) ([]RSVPView, error) {
	records, err := s.app.FindRecordsByFilter("attendees",
		"user = {:user}", "-created", 0, 0,
		dbx.Params{"user": userID})
	if err != nil {
		return nil, err
	}

	events := map[string]*models.Event{}
	views := []RSVPView{}
	for _, r := range records {
		eventID := r.GetString("event")
		event, ok := events[eventID]
		if !ok {
			eventRecord, err := s.app.FindRecordById("events", eventID)
			if err != nil {
				continue
			}
			event = eventFromRecord(eventRecord)
			events[eventID] = event
		}

		if !from.IsZero() && !event.EndTime.After(from) {
			continue
		}
		if !to.IsZero() && !event.StartTime.Before(to) {
			continue
		}

		views = append(views, RSVPView{
			Attendee:   attendeeFromRecord(r),
			EventTitle: event.Title,
			EventStart: event.StartTime,
			EventEnd:   event.EndTime,
		})
	}
	return views, nil
}

func (s *RSVPService) displayName(userID, familyMemberID string) (string, error) {
	if familyMemberID != "" {
		member, err := s.app.FindRecordById("family_members", familyMemberID)
		if err != nil || member.GetString("account") != userID {
			return "", status.ErrFamilyNotFound
		}
		return member.GetString("name"), nil
	}

	user, err := s.app.FindRecordById("users", userID)
	if err != nil {
		return "", err
	}
	if name := user.GetString("name"); name != "" {
		return name, nil
	}
	return user.GetString("email"), nil
}

// attendingFamily counts the user's family-member entries that hold or
// claim a slot for the event. The primary's own record is excluded.
func attendingFamily(txApp core.App, eventID, userID string) (int, error) {
	n, err := txApp.CountRecords("attendees",
		dbx.HashExp{"event": eventID, "user": userID},
		dbx.NewExp("family_member != ''"),
		dbx.In("status", models.RSVPGoing, models.RSVPWaitlisted))
	return int(n), err
}
