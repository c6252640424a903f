package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"

	"club-system/config"
	"club-system/internal/notify"
	"club-system/internal/status"
	"club-system/models"
	"club-system/monitoring"
	"club-system/utils"
)

// unlockScript releases the promotion lock only when the caller still owns
// it, so a worker that outlived the lock TTL cannot release its successor's.
const unlockScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

const waitlistEventsKey = "waitlist:events"

func lockKey(eventID string) string {
	return fmt.Sprintf("waitlist:lock:%s", eventID)
}

func positionKey(eventID, attendeeID string) string {
	return fmt.Sprintf("waitlist:position:%s:%s", eventID, attendeeID)
}

// WaitlistService owns waitlist ordering and promotion. All database
// mutation runs inside one transaction per event, serialized across
// processes by a Redis lock, so concurrent RSVPs and admin edits cannot
// interleave with a promotion pass.
type WaitlistService struct {
	app     core.App
	redis   *redis.Client
	notify  *notify.Service
	monitor *monitoring.Monitor
	cfg     *config.Config
	logger  *slog.Logger
}

func NewWaitlistService(app core.App, redisClient *redis.Client, notifier *notify.Service, monitor *monitoring.Monitor, cfg *config.Config, logger *slog.Logger) *WaitlistService {
	return &WaitlistService{
		app:     app,
		redis:   redisClient,
		notify:  notifier,
		monitor: monitor,
		cfg:     cfg,
		logger:  logger,
	}
}

// queueEntry is the slice of an attendee record the promotion planner needs.
type queueEntry struct {
	UserID         string
	FamilyMemberID string
}

// planPromotions walks the queue in position order and hands out the free
// slots. A family-member entry is skipped, keeping its position, until the
// primary it rides on is going; a primary promoted earlier in the same pass
// counts. Returns queue indexes: who to promote and who stays, in order.
func planPromotions(free int, queue []queueEntry, primaryGoing map[string]bool) (promote, remaining []int) {
	for i, entry := range queue {
		if free <= 0 {
			remaining = append(remaining, i)
			continue
		}
		if entry.FamilyMemberID != "" && !primaryGoing[entry.UserID] {
			remaining = append(remaining, i)
			continue
		}
		promote = append(promote, i)
		free--
		if entry.FamilyMemberID == "" {
			primaryGoing[entry.UserID] = true
		}
	}
	return promote, remaining
}

type promotedNotice struct {
	AttendeeID string
	UserID     string
	Waited     time.Duration
}

type queuedNotice struct {
	AttendeeID string
	UserID     string
	Position   int
}

// Promote fills free slots from the waitlist and renumbers whoever stays.
// Safe to call when nothing changed: it degenerates to a position resync.
// Returns how many attendees were promoted.
func (s *WaitlistService) Promote(ctx context.Context, eventID string) (int, error) {
	token, ok, err := s.acquireLock(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if !ok {
		// another worker holds this event
		return 0, nil
	}
	defer s.releaseLock(ctx, eventID, token)

	var promoted []promotedNotice
	var queued []queuedNotice

	err = s.app.RunInTransaction(func(txApp core.App) error {
		event, err := txApp.FindRecordById("events", eventID)
		if err != nil {
			return status.ErrEventNotFound
		}

		records, err := txApp.FindRecordsByFilter("attendees",
			"event = {:event} && status = 'waitlisted'",
			"waitlist_position,created", 0, 0,
			dbx.Params{"event": eventID})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}

		free := len(records)
		if capacity := event.GetInt("capacity"); capacity > 0 {
			going, err := txApp.CountRecords("attendees",
				dbx.HashExp{"event": eventID, "status": models.RSVPGoing})
			if err != nil {
				return err
			}
			free = capacity - int(going)
		}

		// Cancelled and finished events promote nobody, but the pass still
		// runs so withdrawals keep closing position gaps.
		ev := eventFromRecord(event)
		if !ev.OpenForRSVP(time.Now()) {
			free = 0
		}

		queue := make([]queueEntry, len(records))
		primaryGoing := map[string]bool{}
		for i, r := range records {
			queue[i] = queueEntry{
				UserID:         r.GetString("user"),
				FamilyMemberID: r.GetString("family_member"),
			}
			if _, seen := primaryGoing[queue[i].UserID]; !seen {
				primaryGoing[queue[i].UserID] = s.primaryGoing(txApp, eventID, queue[i].UserID)
			}
		}

		promoteIdx, remainingIdx := planPromotions(free, queue, primaryGoing)

		now := time.Now()
		for _, i := range promoteIdx {
			r := records[i]
			r.Set("status", models.RSVPGoing)
			r.Set("waitlist_position", 0)
			r.Set("promoted_at", now)
			if err := txApp.Save(r); err != nil {
				return err
			}
			promoted = append(promoted, promotedNotice{
				AttendeeID: r.Id,
				UserID:     r.GetString("user"),
				Waited:     now.Sub(r.GetDateTime("created").Time()),
			})
		}

		for n, i := range remainingIdx {
			r := records[i]
			pos := n + 1
			if r.GetInt("waitlist_position") != pos {
				r.Set("waitlist_position", pos)
				if err := txApp.Save(r); err != nil {
					return err
				}
			}
			queued = append(queued, queuedNotice{
				AttendeeID: r.Id,
				UserID:     r.GetString("user"),
				Position:   pos,
			})
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, p := range promoted {
		s.redis.Del(ctx, positionKey(eventID, p.AttendeeID))
		s.notify.ToUser(p.UserID, notify.PromotedMsg(eventID))
		s.monitor.TrackRSVP("promote", eventID, "success")
		s.monitor.TrackPromotion(eventID, p.Waited)
	}
	s.publishQueue(ctx, eventID, queued)

	if len(promoted) > 0 {
		s.logger.Info("waitlist promotion pass",
			"event", eventID, "promoted", len(promoted), "remaining", len(queued))
	}
	return len(promoted), nil
}

// primaryGoing reports whether the user's own attendee for the event is
// confirmed going. Family entries only promote behind a going primary.
func (s *WaitlistService) primaryGoing(txApp core.App, eventID, userID string) bool {
	r, err := txApp.FindFirstRecordByFilter("attendees",
		"event = {:event} && user = {:user} && family_member = ''",
		dbx.Params{"event": eventID, "user": userID})
	if err != nil {
		return false
	}
	return r.GetString("status") == models.RSVPGoing
}

// publishQueue refreshes the Redis position cache and pushes position
// updates to the queued members, throttled by shouldNotifyPosition.
func (s *WaitlistService) publishQueue(ctx context.Context, eventID string, queue []queuedNotice) {
	if len(queue) == 0 {
		s.redis.SRem(ctx, waitlistEventsKey, eventID)
		s.monitor.SetWaitlistLength(eventID, 0)
		return
	}

	s.redis.SAdd(ctx, waitlistEventsKey, eventID)
	for _, q := range queue {
		s.redis.Set(ctx, positionKey(eventID, q.AttendeeID), q.Position, s.cfg.PositionCacheTTL)
		if shouldNotifyPosition(q.Position) {
			s.notify.ToUser(q.UserID, notify.WaitlistPositionMsg(eventID, q.Position))
		}
	}
	s.monitor.SetWaitlistLength(eventID, len(queue))
}

// shouldNotifyPosition throttles position pushes: the front of the queue
// hears about every resync, the deep end only on round numbers.
func shouldNotifyPosition(position int) bool {
	if position <= 5 {
		return true
	} else if position <= 20 {
		return position%2 == 0
	} else if position <= 100 {
		return position%10 == 0
	}
	return position%50 == 0
}

// Position returns an attendee's waitlist position, serving from the Redis
// cache when warm and falling back to the record otherwise.
func (s *WaitlistService) Position(ctx context.Context, eventID, attendeeID string) (int, error) {
	pos, err := s.redis.Get(ctx, positionKey(eventID, attendeeID)).Int()
	if err == nil {
		return pos, nil
	}
	if err != redis.Nil {
		s.logger.Warn("waitlist position cache read failed", "event", eventID, "error", err)
	}

	record, err := s.app.FindRecordById("attendees", attendeeID)
	if err != nil {
		return 0, status.ErrAttendeeNotFound
	}
	if record.GetString("event") != eventID || record.GetString("status") != models.RSVPWaitlisted {
		return 0, status.ErrNotOnWaitlist
	}

	pos = record.GetInt("waitlist_position")
	s.redis.Set(ctx, positionKey(eventID, attendeeID), pos, s.cfg.PositionCacheTTL)
	return pos, nil
}

// QueueLength counts the waitlisted attendees of an event.
func (s *WaitlistService) QueueLength(ctx context.Context, eventID string) (int, error) {
	n, err := s.app.CountRecords("attendees",
		dbx.HashExp{"event": eventID, "status": models.RSVPWaitlisted})
	return int(n), err
}

// Remove takes an attendee off the waitlist (admin action). The follow-up
// promotion pass closes the position gap and renumbers the rest.
func (s *WaitlistService) Remove(ctx context.Context, eventID, attendeeID, reason string) error {
	record, err := s.app.FindRecordById("attendees", attendeeID)
	if err != nil || record.GetString("event") != eventID {
		return status.ErrAttendeeNotFound
	}
	if record.GetString("status") != models.RSVPWaitlisted {
		return status.ErrNotOnWaitlist
	}

	record.Set("status", models.RSVPNotGoing)
	record.Set("waitlist_position", 0)
	if err := s.app.Save(record); err != nil {
		return err
	}

	s.redis.Del(ctx, positionKey(eventID, attendeeID))
	s.notify.ToUser(record.GetString("user"), notify.RemovedFromWaitlistMsg(eventID, reason))
	s.monitor.TrackRSVP("waitlist_remove", eventID, "success")

	_, err = s.Promote(ctx, eventID)
	return err
}

// Stats aggregates one event's attendance counters for the admin views.
func (s *WaitlistService) Stats(ctx context.Context, eventID string) (*models.EventStats, error) {
	event, err := s.app.FindRecordById("events", eventID)
	if err != nil {
		return nil, status.ErrEventNotFound
	}

	stats := &models.EventStats{
		EventID:   event.Id,
		Title:     event.GetString("title"),
		Capacity:  event.GetInt("capacity"),
		StartTime: event.GetDateTime("start").Time(),
	}

	counts := []struct {
		status string
		dst    *int
	}{
		{models.RSVPGoing, &stats.GoingCount},
		{models.RSVPMaybe, &stats.MaybeCount},
		{models.RSVPWaitlisted, &stats.WaitlistSize},
	}
	for _, c := range counts {
		n, err := s.app.CountRecords("attendees",
			dbx.HashExp{"event": eventID, "status": c.status})
		if err != nil {
			return nil, err
		}
		*c.dst = int(n)
	}

	paid, err := s.app.CountRecords("attendees",
		dbx.HashExp{"event": eventID, "paid": true})
	if err != nil {
		return nil, err
	}
	stats.PaidCount = int(paid)

	return stats, nil
}

// Dashboard lists every event that currently has a waitlist, busiest first.
func (s *WaitlistService) Dashboard(ctx context.Context) ([]*models.EventStats, error) {
	var rows []struct {
		Event string `db:"event"`
		Total int    `db:"total"`
	}
	err := s.app.DB().
		NewQuery("SELECT event, COUNT(*) AS total FROM attendees WHERE status = 'waitlisted' GROUP BY event ORDER BY total DESC").
		All(&rows)
	if err != nil {
		return nil, err
	}

	stats := make([]*models.EventStats, 0, len(rows))
	for _, row := range rows {
		st, err := s.Stats(ctx, row.Event)
		if err != nil {
			s.logger.Warn("waitlist dashboard skipping event", "event", row.Event, "error", err)
			continue
		}
		stats = append(stats, st)
	}
	return stats, nil
}

// Details returns one event's waitlist entries in position order.
func (s *WaitlistService) Details(ctx context.Context, eventID string) ([]models.Attendee, error) {
	records, err := s.app.FindRecordsByFilter("attendees",
		"event = {:event} && status = 'waitlisted'",
		"waitlist_position,created", 0, 0,
		dbx.Params{"event": eventID})
	if err != nil {
		return nil, err
	}

	entries := make([]models.Attendee, len(records))
	for i, r := range records {
		entries[i] = attendeeFromRecord(r)
	}
	return entries, nil
}

// RestoreState rebuilds the Redis waitlist cache from the database, called
// once at boot so a restart does not blind the metrics collector or the
// position endpoint.
func (s *WaitlistService) RestoreState(ctx context.Context) error {
	var rows []struct {
		Event string `db:"event"`
	}
	err := s.app.DB().
		NewQuery("SELECT DISTINCT event FROM attendees WHERE status = 'waitlisted'").
		All(&rows)
	if err != nil {
		return err
	}

	for _, row := range rows {
		records, err := s.app.FindRecordsByFilter("attendees",
			"event = {:event} && status = 'waitlisted'",
			"waitlist_position,created", 0, 0,
			dbx.Params{"event": row.Event})
		if err != nil {
			return err
		}
		s.redis.SAdd(ctx, waitlistEventsKey, row.Event)
		for _, r := range records {
			s.redis.Set(ctx, positionKey(row.Event, r.Id), r.GetInt("waitlist_position"), s.cfg.PositionCacheTTL)
		}
		s.monitor.SetWaitlistLength(row.Event, len(records))
	}

	s.logger.Info("waitlist state restored", "events", len(rows))
	return nil
}

func (s *WaitlistService) acquireLock(ctx context.Context, eventID string) (string, bool, error) {
	token, err := utils.GenerateCode(8)
	if err != nil {
		return "", false, err
	}
	ok, err := s.redis.SetNX(ctx, lockKey(eventID), token, s.cfg.WaitlistLockTTL).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (s *WaitlistService) releaseLock(ctx context.Context, eventID, token string) {
	if err := s.redis.Eval(ctx, unlockScript, []string{lockKey(eventID)}, token).Err(); err != nil {
		s.logger.Warn("waitlist lock release failed", "event", eventID, "error", err)
	}
}
