package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"club-system/config"
	"club-system/internal/billing"
	"club-system/internal/notify"
	"club-system/internal/status"
	"club-system/models"
	"club-system/monitoring"
)

func setupTestPayments(provider billing.Provider) *PaymentService {
	cfg := &config.Config{
		PaymentTimeout:       10 * time.Minute,
		PaymentSweepInterval: time.Minute,
	}
	return NewPaymentService(nil, provider,
		notify.NewService(nil, nil, slog.Default()),
		&monitoring.Monitor{}, cfg, slog.Default())
}

func TestPartyCharges(t *testing.T) {
	fee := decimal.RequireFromString("12.50")
	party := []models.Attendee{
		{ID: "a1", DisplayName: "Ana"},
		{ID: "a2", DisplayName: "Luka", FamilyMemberID: "fm1", Paid: true},
		{ID: "a3", DisplayName: "Mia", FamilyMemberID: "fm2"},
	}

	charges, total := partyCharges(fee, party)

	require.Len(t, charges, 3)
	assert.Equal(t, "a1", charges[0].AttendeeID)
	assert.Equal(t, "Ana", charges[0].Label)
	assert.Equal(t, fee.String(), charges[0].Amount)
	assert.False(t, charges[0].Paid)

	assert.True(t, charges[1].Paid)
	assert.Equal(t, "fm1", charges[1].FamilyMemberID)

	// the paid row stays visible but does not count towards the total
	assert.True(t, total.Equal(decimal.RequireFromString("25")),
		"total = %s", total.String())
}

func TestPartyCharges_EmptyParty(t *testing.T) {
	charges, total := partyCharges(decimal.RequireFromString("10"), nil)

	assert.Empty(t, charges)
	assert.True(t, total.IsZero())
}

func TestPartyCharges_AllPaid(t *testing.T) {
	fee := decimal.RequireFromString("8")
	party := []models.Attendee{
		{ID: "a1", DisplayName: "Ana", Paid: true},
		{ID: "a2", DisplayName: "Luka", Paid: true},
	}

	charges, total := partyCharges(fee, party)

	assert.Len(t, charges, 2)
	assert.True(t, total.IsZero())
}

func TestEventFee(t *testing.T) {
	collection := core.NewBaseCollection("events")
	collection.Fields.Add(&core.TextField{Name: "fee"})
	record := core.NewRecord(collection)

	fee, err := eventFee(record)
	require.NoError(t, err)
	assert.True(t, fee.IsZero(), "empty fee means a free event")

	record.Set("fee", "15.00")
	fee, err = eventFee(record)
	require.NoError(t, err)
	assert.True(t, fee.Equal(decimal.RequireFromString("15")))

	record.Set("fee", "not-a-number")
	_, err = eventFee(record)
	assert.Error(t, err)
}

func TestPaymentService_SimulateSettle(t *testing.T) {
	dev := billing.NewDevProvider()
	service := setupTestPayments(dev)

	// workers are not started, the confirmation stays in the channel
	err := service.SimulateSettle(context.Background(), "PAY-AB12", "Ana", decimal.RequireFromString("25"))
	require.NoError(t, err)

	select {
	case c := <-service.confirmations:
		assert.Equal(t, "PAY-AB12", c.BillNumber)
		assert.Equal(t, "Ana", c.Payer)
		assert.True(t, decimal.RequireFromString("25").Equal(c.Amount))
	default:
		t.Fatal("expected a confirmation push from the dev provider")
	}
}

func TestPaymentService_SimulateSettle_RealProviderRefused(t *testing.T) {
	service := setupTestPayments(&fakeProvider{})

	err := service.SimulateSettle(context.Background(), "PAY-AB12", "Ana", decimal.NewFromInt(25))
	assert.ErrorIs(t, err, status.ErrFailedPayment)
}

func TestPaymentService_StartAndShutdown(t *testing.T) {
	service := setupTestPayments(billing.NewDevProvider())

	service.Start()

	done := make(chan struct{})
	go func() {
		service.Shutdown(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not finish")
	}
}

type fakeProvider struct {
	ch chan *status.Confirmation
}

func (f *fakeProvider) Name() billing.ProviderName { return billing.ProviderName("fake") }

func (f *fakeProvider) GenerateQR(context.Context, *status.QRForm) (string, error) {
	return "QR", nil
}

func (f *fakeProvider) CheckTransaction(context.Context, string) (*status.Confirmation, error) {
	return nil, status.ErrRefCodeNotFound
}

func (f *fakeProvider) SetConfirmationChannel(ch chan *status.Confirmation) { f.ch = ch }

func (f *fakeProvider) Unsubscribe(context.Context, string) {}

func (f *fakeProvider) Close(context.Context) error { return nil }
