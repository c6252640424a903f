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
	"club-system/utils"
)

// ApprovalService runs the account vetting workflow: every new signup
// opens a request that an admin decides, with a message thread in between
// for clarification rounds.
type ApprovalService struct {
	app     core.App
	notify  *notify.Service
	monitor *monitoring.Monitor
	logger  *slog.Logger
}

func NewApprovalService(app core.App, notifier *notify.Service, monitor *monitoring.Monitor, logger *slog.Logger) *ApprovalService {
	return &ApprovalService{
		app:     app,
		notify:  notifier,
		monitor: monitor,
		logger:  logger,
	}
}

// CreateForUser opens the pending request for a fresh signup. Runs on the
// caller's (possibly transactional) app so the signup hook keeps user and
// request creation atomic.
func (s *ApprovalService) CreateForUser(txApp core.App, userID string) (*core.Record, error) {
	collection, err := txApp.FindCollectionByNameOrId("account_requests")
	if err != nil {
		return nil, err
	}

	ref, err := utils.RefCode("REQ", 3)
	if err != nil {
		return nil, err
	}

	record := core.NewRecord(collection)
	record.Set("user", userID)
	record.Set("status", models.RequestPending)
	record.Set("reference", ref)
	if err := txApp.Save(record); err != nil {
		return nil, err
	}
	return record, nil
}

// AnnounceRequest tells the admin channel about a fresh request. Called
// after the signup transaction commits.
func (s *ApprovalService) AnnounceRequest(requestID, refCode, name string) {
	s.notify.ToAdmins(notify.NewAccountRequestMsg(requestID, refCode, name))
}

// Get returns the caller's own request with its message thread.
func (s *ApprovalService) Get(ctx context.Context, userID string) (*models.AccountRequest, []models.ApprovalMessage, error) {
	record, err := s.app.FindFirstRecordByFilter("account_requests",
		"user = {:user}", dbx.Params{"user": userID})
	if err != nil {
		return nil, nil, status.ErrRequestNotFound
	}

	request := requestFromRecord(record)
	messages, err := s.thread(record.Id)
	if err != nil {
		return nil, nil, err
	}
	return &request, messages, nil
}

// PostMemberMessage appends the member's reply to their thread. Replying to
// a needs_clarification request moves it back to pending so it shows up in
// the admin queue again.
func (s *ApprovalService) PostMemberMessage(ctx context.Context, userID, body string) (*models.ApprovalMessage, error) {
	var message models.ApprovalMessage
	var requestID string

	err := s.app.RunInTransaction(func(txApp core.App) error {
		request, err := txApp.FindFirstRecordByFilter("account_requests",
			"user = {:user}", dbx.Params{"user": userID})
		if err != nil {
			return status.ErrRequestNotFound
		}
		if models.RequestDecided(request.GetString("status")) {
			return status.ErrRequestClosed
		}
		requestID = request.Id

		record, err := s.appendMessage(txApp, request.Id, userID, false, body)
		if err != nil {
			return err
		}
		message = messageFromRecord(record)

		if request.GetString("status") == models.RequestNeedsClarification {
			request.Set("status", models.RequestPending)
			return txApp.Save(request)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.ToAdmins(notify.ApprovalMessageMsg(requestID, false))
	return &message, nil
}

// PostAdminMessage appends an admin note to a request's thread. authorID
// may be empty when a superuser posts from the dashboard.
func (s *ApprovalService) PostAdminMessage(ctx context.Context, authorID, requestID, body string) (*models.ApprovalMessage, error) {
	var message models.ApprovalMessage
	var memberID string

	err := s.app.RunInTransaction(func(txApp core.App) error {
		request, err := txApp.FindRecordById("account_requests", requestID)
		if err != nil {
			return status.ErrRequestNotFound
		}
		if models.RequestDecided(request.GetString("status")) {
			return status.ErrRequestClosed
		}
		memberID = request.GetString("user")

		record, err := s.appendMessage(txApp, requestID, authorID, true, body)
		if err != nil {
			return err
		}
		message = messageFromRecord(record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.ToUser(memberID, notify.ApprovalMessageMsg(requestID, true))
	return &message, nil
}

// Decide moves a request to its next status. Approve and reject are
// terminal: they stamp the decision and flip the user's account status in
// the same transaction.
func (s *ApprovalService) Decide(ctx context.Context, adminID, requestID, next, note string) (*models.AccountRequest, error) {
	var decided models.AccountRequest
	var memberID string

	err := s.app.RunInTransaction(func(txApp core.App) error {
		request, err := txApp.FindRecordById("account_requests", requestID)
		if err != nil {
			return status.ErrRequestNotFound
		}
		if err := models.CheckDecision(request.GetString("status"), next); err != nil {
			return err
		}
		memberID = request.GetString("user")

		request.Set("status", next)
		if note != "" {
			request.Set("note", note)
		}
		if models.RequestDecided(next) {
			request.Set("decided_by", adminID)
			request.Set("decided_at", time.Now())

			user, err := txApp.FindRecordById("users", memberID)
			if err != nil {
				return err
			}
			user.Set("status", models.AccountStatusFor(next))
			if err := txApp.Save(user); err != nil {
				return err
			}
		}
		if err := txApp.Save(request); err != nil {
			return err
		}

		decided = requestFromRecord(request)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.ToUser(memberID, notify.ApprovalUpdateMsg(requestID, next))
	s.monitor.TrackApproval(next)
	s.logger.Info("account request decided", "request", requestID, "status", next)
	return &decided, nil
}

// List returns requests for the admin queue, newest first, optionally
// narrowed to one status.
func (s *ApprovalService) List(ctx context.Context, statusFilter string) ([]models.AccountRequest, error) {
	filter := "status != ''"
	params := dbx.Params{}
	if statusFilter != "" {
		filter = "status = {:status}"
		params = dbx.Params{"status": statusFilter}
	}

	records, err := s.app.FindRecordsByFilter("account_requests",
		filter, "-created", 200, 0, params)
	if err != nil {
		return nil, err
	}

	requests := make([]models.AccountRequest, len(records))
	for i, r := range records {
		requests[i] = requestFromRecord(r)
	}
	return requests, nil
}

// Thread returns a request's messages in posting order (admin view).
func (s *ApprovalService) Thread(ctx context.Context, requestID string) ([]models.ApprovalMessage, error) {
	if _, err := s.app.FindRecordById("account_requests", requestID); err != nil {
		return nil, status.ErrRequestNotFound
	}
	return s.thread(requestID)
}

func (s *ApprovalService) thread(requestID string) ([]models.ApprovalMessage, error) {
	records, err := s.app.FindRecordsByFilter("approval_messages",
		"request = {:request}", "created", 0, 0,
		dbx.Params{"request": requestID})
	if err != nil {
		return nil, err
	}

	messages := make([]models.ApprovalMessage, len(records))
	for i, r := range records {
		messages[i] = messageFromRecord(r)
	}
	return messages, nil
}

func (s *ApprovalService) appendMessage(txApp core.App, requestID, authorID string, fromAdmin bool, body string) (*core.Record, error) {
	collection, err := txApp.FindCollectionByNameOrId("approval_messages")
	if err != nil {
		return nil, err
	}

	record := core.NewRecord(collection)
	record.Set("request", requestID)
	record.Set("author", authorID)
	record.Set("from_admin", fromAdmin)
	record.Set("body", body)
	if err := txApp.Save(record); err != nil {
		return nil, err
	}
	return record, nil
}
