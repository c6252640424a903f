package cmd

import (
	"context"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"

	"club-system/internal/notify"
	"club-system/internal/services"
	"club-system/models"
	"club-system/recurrence"
)

// registerAccountHooks attaches the approval workflow to user signups.
// The account request is created on the transactional app so a failed
// request creation rolls the signup back with it.
func registerAccountHooks(app *pocketbase.PocketBase, approval *services.ApprovalService) {
	app.OnRecordCreate("users").BindFunc(func(e *core.RecordEvent) error {
		if e.Record.GetString("status") == "" {
			e.Record.Set("status", models.AccountPending)
		}
		if e.Record.GetString("role") == "" {
			e.Record.Set("role", models.RoleMember)
		}
		if err := e.Next(); err != nil {
			return err
		}
		if e.Record.GetString("status") != models.AccountPending {
			// seeded admins and imports skip the approval queue
			return nil
		}
		_, err := approval.CreateForUser(e.App, e.Record.Id)
		return err
	})

	// announce only after the signup transaction committed
	app.OnRecordAfterCreateSuccess("users").BindFunc(func(e *core.RecordEvent) error {
		if e.Record.GetString("status") != models.AccountPending {
			return e.Next()
		}
		request, err := e.App.FindFirstRecordByFilter("account_requests",
			"user = {:user}", dbx.Params{"user": e.Record.Id})
		if err != nil {
			e.App.Logger().Warn("signup without account request", "user", e.Record.Id, "error", err)
			return e.Next()
		}
		name := e.Record.GetString("name")
		if name == "" {
			name = e.Record.Email()
		}
		approval.AnnounceRequest(request.Id, request.GetString("reference"), name)
		return e.Next()
	})
}

// registerAttendeeHooks enforces the RSVP invariants at the record layer so
// dashboard edits cannot sidestep them. The statuses themselves are wider
// than what members may request: waitlisted is assigned by the promotion
// flow and has to be storable here.
func registerAttendeeHooks(app *pocketbase.PocketBase) {
	validate := func(e *core.RecordEvent) error {
		switch e.Record.GetString("status") {
		case models.RSVPGoing, models.RSVPMaybe, models.RSVPNotGoing, models.RSVPWaitlisted:
		default:
			return apis.NewBadRequestError("unknown rsvp status", nil)
		}

		eventID := e.Record.GetString("event")
		userID := e.Record.GetString("user")

		if e.Record.GetString("family_member") == "" {
			if !models.IsAttending(e.Record.GetString("status")) {
				attending, err := familyAttending(e.App, eventID, userID)
				if err != nil {
					return err
				}
				if attending > 0 {
					return apis.NewBadRequestError("family members still attend through this RSVP", nil)
				}
			}
			return e.Next()
		}

		if models.IsAttending(e.Record.GetString("status")) {
			if !models.IsAttending(primaryStatus(e.App, eventID, userID)) {
				return apis.NewBadRequestError("the primary member is not attending this event", nil)
			}
		}
		return e.Next()
	}

	app.OnRecordCreate("attendees").BindFunc(validate)
	app.OnRecordUpdate("attendees").BindFunc(validate)

	// request level only: event cascade deletes must not trip the lock
	app.OnRecordDeleteRequest("attendees").BindFunc(func(e *core.RecordRequestEvent) error {
		if e.Record.GetString("family_member") == "" {
			attending, err := familyAttending(e.App, e.Record.GetString("event"), e.Record.GetString("user"))
			if err != nil {
				return err
			}
			if attending > 0 {
				return apis.NewBadRequestError("family members still attend through this RSVP", nil)
			}
		}
		return e.Next()
	})
}

// registerEventHooks validates the calendar fields on save and fans out the
// cancellation notice once a cancel commits.
func registerEventHooks(app *pocketbase.PocketBase, notifier *notify.Service, redisClient *redis.Client) {
	validate := func(e *core.RecordEvent) error {
		switch e.Record.GetString("status") {
		case models.EventStatusDraft, models.EventStatusPublished, models.EventStatusCancelled:
		default:
			return apis.NewBadRequestError("unknown event status", nil)
		}

		start := e.Record.GetDateTime("start")
		end := e.Record.GetDateTime("end")
		if start.IsZero() || !end.Time().After(start.Time()) {
			return apis.NewBadRequestError("event must end after it starts", nil)
		}

		if rule := e.Record.GetString("rrule"); rule != "" {
			if _, err := recurrence.Parse(rule); err != nil {
				return apis.NewBadRequestError("invalid recurrence rule", err)
			}
		}
		if _, err := services.ParseExDates(e.Record.GetStringSlice("exdates")); err != nil {
			return apis.NewBadRequestError("invalid exception date", err)
		}
		return e.Next()
	}

	app.OnRecordCreate("events").BindFunc(validate)
	app.OnRecordUpdate("events").BindFunc(validate)

	app.OnRecordAfterUpdateSuccess("events").BindFunc(func(e *core.RecordEvent) error {
		wasCancelled := e.Record.Original().GetString("status") == models.EventStatusCancelled
		if e.Record.GetString("status") == models.EventStatusCancelled && !wasCancelled {
			notifyEventCancelled(e.App, notifier, e.Record)
		}
		return e.Next()
	})

	app.OnRecordAfterDeleteSuccess("events").BindFunc(func(e *core.RecordEvent) error {
		if err := redisClient.SRem(context.Background(), "waitlist:events", e.Record.Id).Err(); err != nil {
			e.App.Logger().Warn("failed to drop deleted event from waitlist set",
				"event", e.Record.Id, "error", err)
		}
		return e.Next()
	})
}

func notifyEventCancelled(app core.App, notifier *notify.Service, event *core.Record) {
	records, err := app.FindRecordsByFilter("attendees",
		"event = {:event} && status != 'not_going'", "", 0, 0,
		dbx.Params{"event": event.Id})
	if err != nil {
		app.Logger().Warn("cancel notice fanout failed", "event", event.Id, "error", err)
		return
	}

	message := notify.EventCancelledMsg(event.Id, event.GetString("title"))
	seen := map[string]bool{}
	for _, r := range records {
		userID := r.GetString("user")
		if seen[userID] {
			continue
		}
		seen[userID] = true
		notifier.ToUser(userID, message)
	}
}

func familyAttending(app core.App, eventID, userID string) (int64, error) {
	return app.CountRecords("attendees",
		dbx.HashExp{"event": eventID, "user": userID},
		dbx.NewExp("family_member != ''"),
		dbx.In("status", models.RSVPGoing, models.RSVPWaitlisted),
	)
}

func primaryStatus(app core.App, eventID, userID string) string {
	record, err := app.FindFirstRecordByFilter("attendees",
		"event = {:event} && user = {:user} && family_member = ''",
		dbx.Params{"event": eventID, "user": userID})
	if err != nil {
		return ""
	}
	return record.GetString("status")
}
