package billing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"club-system/internal/status"
)

func TestDevProviderSettlement(t *testing.T) {
	dev := NewDevProvider()
	ctx := context.Background()

	qr, err := dev.GenerateQR(ctx, &status.QRForm{
		BillNumber:     "pay123",
		ReferenceLabel: "PAY-AB12CD",
		Amount:         decimal.NewFromInt(15),
	})
	require.NoError(t, err)
	assert.Contains(t, qr, "pay123")
	assert.Contains(t, qr, "PAY-AB12CD")

	_, err = dev.CheckTransaction(ctx, "pay123")
	assert.ErrorIs(t, err, status.ErrRefCodeNotFound)

	ch := make(chan *status.Confirmation, 1)
	dev.SetConfirmationChannel(ch)

	dev.Settle("pay123", "TXN-1", "Jo Member", decimal.NewFromInt(15))

	pushed := <-ch
	assert.Equal(t, "pay123", pushed.BillNumber)
	assert.True(t, pushed.Amount.Equal(decimal.NewFromInt(15)))

	settled, err := dev.CheckTransaction(ctx, "pay123")
	require.NoError(t, err)
	assert.Equal(t, "TXN-1", settled.RefID)
}

func TestDevProviderSettleWithoutChannel(t *testing.T) {
	dev := NewDevProvider()

	assert.NotPanics(t, func() {
		dev.Settle("pay9", "TXN-9", "", decimal.NewFromInt(5))
	})
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), ProviderName("paypal"), nil)
	assert.Error(t, err)
}
