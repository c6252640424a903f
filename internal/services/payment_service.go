package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"

	"club-system/config"
	"club-system/internal/billing"
	"club-system/internal/notify"
	"club-system/internal/status"
	"club-system/models"
	"club-system/monitoring"
	"club-system/utils"
)

const defaultCurrency = "EUR"

// PaymentService turns an event fee into a per-party bill, opens QR payment
// sessions against the configured gateway and settles them when the
// confirmation comes back. Gateway calls run behind a circuit breaker so a
// dead provider degrades to fast errors instead of piling up requests.
type PaymentService struct {
	app      core.App
	provider billing.Provider
	breaker  *utils.CircuitBreaker
	notify   *notify.Service
	monitor  *monitoring.Monitor
	cfg      *config.Config
	logger   *slog.Logger

	confirmations chan *status.Confirmation
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

func NewPaymentService(app core.App, provider billing.Provider, notifier *notify.Service, monitor *monitoring.Monitor, cfg *config.Config, logger *slog.Logger) *PaymentService {
	service := &PaymentService{
		app:           app,
		provider:      provider,
		breaker:       utils.NewCircuitBreaker("billing"),
		notify:        notifier,
		monitor:       monitor,
		cfg:           cfg,
		logger:        logger,
		confirmations: make(chan *status.Confirmation, 64),
		stopChan:      make(chan struct{}),
	}
	provider.SetConfirmationChannel(service.confirmations)
	return service
}

// Start launches the confirmation consumer and the expiry sweeper.
func (s *PaymentService) Start() {
	s.wg.Add(2)
	go s.consumeConfirmations()
	go s.expirySweeper()
	s.logger.Info("payment workers started", "provider", s.provider.Name())
}

// partyCharges builds the per-attendee rows for one member's party. Every
// going attendee gets a row, already-paid ones are flagged and excluded
// from the total.
func partyCharges(fee decimal.Decimal, party []models.Attendee) ([]models.PartyCharge, decimal.Decimal) {
	total := decimal.Zero
	charges := make([]models.PartyCharge, 0, len(party))
	for _, a := range party {
		charges = append(charges, models.PartyCharge{
			AttendeeID:     a.ID,
			FamilyMemberID: a.FamilyMemberID,
			Label:          a.DisplayName,
			Amount:         fee.String(),
			Paid:           a.Paid,
		})
		if !a.Paid {
			total = total.Add(fee)
		}
	}
	return charges, total
}

// Summary returns what the caller's party owes for an event: one row per
// going attendee (self and family members) and the unpaid total.
func (s *PaymentService) Summary(ctx context.Context, userID, eventID string) ([]models.PartyCharge, string, error) {
	eventRecord, err := s.app.FindRecordById("events", eventID)
	if err != nil {
		return nil, "", status.ErrEventNotFound
	}

	fee, err := eventFee(eventRecord)
	if err != nil {
		return nil, "", err
	}
	if fee.IsZero() {
		return []models.PartyCharge{}, "0", nil
	}

	party, err := s.goingParty(eventID, userID)
	if err != nil {
		return nil, "", err
	}

	charges, total := partyCharges(fee, party)
	return charges, total.String(), nil
}

// OpenSession creates a pending payment for the caller's unpaid party and
// returns it with the gateway QR. An existing live pending session for the
// same event is returned as-is so a double tap does not double bill.
func (s *PaymentService) OpenSession(ctx context.Context, userID, eventID string) (*models.Payment, error) {
	eventRecord, err := s.app.FindRecordById("events", eventID)
	if err != nil {
		return nil, status.ErrEventNotFound
	}

	fee, err := eventFee(eventRecord)
	if err != nil {
		return nil, err
	}
	if fee.IsZero() {
		return nil, status.ErrNothingToPay
	}

	party, err := s.goingParty(eventID, userID)
	if err != nil {
		return nil, err
	}

	charges, total := partyCharges(fee, party)
	items := make([]models.PaymentItem, 0, len(charges))
	for _, c := range charges {
		if !c.Paid {
			items = append(items, models.PaymentItem{
				AttendeeID: c.AttendeeID,
				Label:      c.Label,
				Amount:     c.Amount,
			})
		}
	}
	if len(items) == 0 {
		return nil, status.ErrNothingToPay
	}

	if existing, err := s.app.FindFirstRecordByFilter("payments",
		"event = {:event} && user = {:user} && status = 'pending'",
		dbx.Params{"event": eventID, "user": userID}); err == nil {
		if existing.GetDateTime("expires_at").Time().After(time.Now()) {
			return paymentFromRecord(existing), nil
		}
	}

	reference, err := utils.RefCode("PAY", 4)
	if err != nil {
		return nil, err
	}

	res, err := s.breaker.Execute(ctx, func() (any, error) {
		return s.provider.GenerateQR(ctx, &status.QRForm{
			BillNumber:     reference,
			ReferenceLabel: reference,
			TerminalLabel:  "club-events",
			Amount:         total,
		})
	})
	if err != nil {
		s.monitor.TrackPayment("create", "gateway_error")
		s.logger.Warn("payment QR generation failed", "event", eventID, "error", err)
		return nil, status.ErrFailedPayment
	}
	qr := res.(string)

	collection, err := s.app.FindCollectionByNameOrId("payments")
	if err != nil {
		return nil, err
	}
	record := core.NewRecord(collection)
	record.Set("event", eventID)
	record.Set("user", userID)
	record.Set("amount", total.String())
	record.Set("currency", defaultCurrency)
	record.Set("status", models.PaymentPending)
	record.Set("reference", reference)
	record.Set("qr_code", qr)
	record.Set("breakdown", items)
	record.Set("expires_at", time.Now().Add(s.cfg.PaymentTimeout))

	if err := s.app.Save(record); err != nil {
		s.provider.Unsubscribe(ctx, reference)
		return nil, err
	}

	s.monitor.TrackPayment("create", "success")
	s.logger.Info("payment session opened",
		"reference", reference, "event", eventID, "amount", total.String())
	return paymentFromRecord(record), nil
}

// Get returns the caller's own payment.
func (s *PaymentService) Get(ctx context.Context, userID, paymentID string) (*models.Payment, error) {
	record, err := s.app.FindRecordById("payments", paymentID)
	if err != nil || record.GetString("user") != userID {
		return nil, status.ErrPaymentNotFound
	}
	return paymentFromRecord(record), nil
}

// Status returns the payment, asking the gateway first while it is still
// pending in case the confirmation push got lost.
func (s *PaymentService) Status(ctx context.Context, userID, paymentID string) (*models.Payment, error) {
	record, err := s.app.FindRecordById("payments", paymentID)
	if err != nil || record.GetString("user") != userID {
		return nil, status.ErrPaymentNotFound
	}

	if record.GetString("status") == models.PaymentPending {
		reference := record.GetString("reference")
		res, err := s.breaker.Execute(ctx, func() (any, error) {
			confirmation, err := s.provider.CheckTransaction(ctx, reference)
			if errors.Is(err, status.ErrRefCodeNotFound) {
				// gateway reachable, bill simply unpaid
				return nil, nil
			}
			return confirmation, err
		})
		if err != nil {
			s.logger.Warn("gateway status check failed", "reference", reference, "error", err)
		} else if confirmation, ok := res.(*status.Confirmation); ok && confirmation != nil {
			if err := s.applyConfirmation(ctx, confirmation); err != nil {
				s.logger.Warn("confirmation not applied", "reference", reference, "error", err)
			}
			if refreshed, err := s.app.FindRecordById("payments", paymentID); err == nil {
				record = refreshed
			}
		}
	}

	return paymentFromRecord(record), nil
}

// Cancel closes a pending session before it is paid.
func (s *PaymentService) Cancel(ctx context.Context, userID, paymentID string) (*models.Payment, error) {
	record, err := s.app.FindRecordById("payments", paymentID)
	if err != nil || record.GetString("user") != userID {
		return nil, status.ErrPaymentNotFound
	}
	if record.GetString("status") != models.PaymentPending {
		return nil, status.ErrPaymentNotPending
	}

	record.Set("status", models.PaymentCancelled)
	if err := s.app.Save(record); err != nil {
		return nil, err
	}

	s.provider.Unsubscribe(ctx, record.GetString("reference"))
	s.monitor.TrackPayment("cancel", "success")
	return paymentFromRecord(record), nil
}

// SimulateSettle drives the dev provider as if the bank had confirmed the
// bill. Refused when a real gateway is configured.
func (s *PaymentService) SimulateSettle(ctx context.Context, reference, payer string, amount decimal.Decimal) error {
	dev, ok := s.provider.(*billing.DevProvider)
	if !ok {
		return status.ErrFailedPayment
	}

	refID, err := utils.RefCode("TXN", 4)
	if err != nil {
		return err
	}
	dev.Settle(reference, refID, payer, amount)
	return nil
}

func (s *PaymentService) consumeConfirmations() {
	defer s.wg.Done()
	s.monitor.AddGoroutine()
	defer s.monitor.RemoveGoroutine()

	for {
		select {
		case confirmation := <-s.confirmations:
			if confirmation == nil {
				continue
			}
			if err := s.applyConfirmation(context.Background(), confirmation); err != nil {
				s.logger.Warn("confirmation not applied",
					"bill", confirmation.BillNumber, "error", err)
			}
		case <-s.stopChan:
			return
		}
	}
}

// applyConfirmation settles the payment a gateway confirmation refers to:
// amount must match what we billed, then the payment completes and every
// attendee in its breakdown is marked paid, all in one transaction. Late
// confirmations for expired payments still settle; the money already moved.
func (s *PaymentService) applyConfirmation(ctx context.Context, c *status.Confirmation) error {
	record, err := s.app.FindFirstRecordByFilter("payments",
		"reference = {:reference}", dbx.Params{"reference": c.BillNumber})
	if err != nil {
		return status.ErrPaymentNotFound
	}

	switch record.GetString("status") {
	case models.PaymentPending, models.PaymentExpired:
	case models.PaymentCompleted:
		// replayed confirmation
		return nil
	default:
		s.logger.Warn("confirmation for closed payment",
			"reference", c.BillNumber, "status", record.GetString("status"))
		return nil
	}

	billed, err := decimal.NewFromString(record.GetString("amount"))
	if err != nil {
		return err
	}
	if !billed.Equal(c.Amount) {
		record.Set("status", models.PaymentFailed)
		if err := s.app.Save(record); err != nil {
			return err
		}
		s.notify.ToUser(record.GetString("user"), notify.PaymentFailedMsg(c.BillNumber, "amount mismatch"))
		s.monitor.TrackPayment("confirm", "amount_mismatch")
		s.provider.Unsubscribe(ctx, c.BillNumber)
		s.logger.Warn("payment amount mismatch",
			"reference", c.BillNumber, "billed", billed.String(), "paid", c.Amount.String())
		return status.ErrFailedPayment
	}

	paidAt := c.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	err = s.app.RunInTransaction(func(txApp core.App) error {
		record.Set("status", models.PaymentCompleted)
		record.Set("completed_at", paidAt)
		if err := txApp.Save(record); err != nil {
			return err
		}

		var items []models.PaymentItem
		if err := record.UnmarshalJSONField("breakdown", &items); err != nil {
			return err
		}
		for _, item := range items {
			attendee, err := txApp.FindRecordById("attendees", item.AttendeeID)
			if err != nil {
				// attendee withdrew between billing and paying
				continue
			}
			attendee.Set("paid", true)
			if err := txApp.Save(attendee); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notify.ToUser(record.GetString("user"),
		notify.PaymentCompletedMsg(c.BillNumber, record.GetString("event")))
	s.monitor.TrackPayment("confirm", "success")
	s.provider.Unsubscribe(ctx, c.BillNumber)
	s.logger.Info("payment completed", "reference", c.BillNumber, "amount", c.Amount.String())
	return nil
}

func (s *PaymentService) expirySweeper() {
	defer s.wg.Done()
	s.monitor.AddGoroutine()
	defer s.monitor.RemoveGoroutine()

	ticker := time.NewTicker(s.cfg.PaymentSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepExpired(context.Background())
		case <-s.stopChan:
			return
		}
	}
}

func (s *PaymentService) sweepExpired(ctx context.Context) {
	records, err := s.app.FindRecordsByFilter("payments",
		"status = 'pending' && expires_at <= {:now}",
		"created", 0, 0, dbx.Params{"now": types.NowDateTime()})
	if err != nil {
		s.logger.Warn("payment expiry sweep failed", "error", err)
		return
	}

	for _, record := range records {
		record.Set("status", models.PaymentExpired)
		if err := s.app.Save(record); err != nil {
			s.logger.Warn("could not expire payment", "payment", record.Id, "error", err)
			continue
		}

		reference := record.GetString("reference")
		s.notify.ToUser(record.GetString("user"),
			notify.PaymentExpiredMsg(reference, record.GetString("event")))
		s.monitor.TrackPayment("expire", "success")
		s.provider.Unsubscribe(ctx, reference)
	}

	if len(records) > 0 {
		s.logger.Info("expired stale payments", "count", len(records))
	}
}

// Shutdown stops the workers and closes the gateway connection.
func (s *PaymentService) Shutdown(ctx context.Context) {
	close(s.stopChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		s.logger.Warn("timeout waiting for payment goroutines")
	}

	if err := s.provider.Close(ctx); err != nil {
		s.logger.Warn("gateway close failed", "error", err)
	}
}

func (s *PaymentService) goingParty(eventID, userID string) ([]models.Attendee, error) {
	records, err := s.app.FindRecordsByFilter("attendees",
		"event = {:event} && user = {:user} && status = 'going'",
		"created", 0, 0, dbx.Params{"event": eventID, "user": userID})
	if err != nil {
		return nil, err
	}

	party := make([]models.Attendee, len(records))
	for i, r := range records {
		party[i] = attendeeFromRecord(r)
	}
	return party, nil
}

func eventFee(r *core.Record) (decimal.Decimal, error) {
	raw := r.GetString("fee")
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
