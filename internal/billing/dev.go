package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"club-system/internal/status"
)

// DevProvider is the gateway stand-in for local development. QR payloads are
// fake and bills settle only through the simulate endpoint, which feeds the
// same confirmation path the real gateway uses.
type DevProvider struct {
	mu      sync.Mutex
	ch      chan *status.Confirmation
	settled map[string]*status.Confirmation
}

func NewDevProvider() *DevProvider {
	return &DevProvider{settled: make(map[string]*status.Confirmation)}
}

func (d *DevProvider) Name() ProviderName {
	return ProviderDev
}

func (d *DevProvider) GenerateQR(_ context.Context, form *status.QRForm) (string, error) {
	return fmt.Sprintf("DEVQR|%s|%s|%s", form.BillNumber, form.ReferenceLabel, form.Amount), nil
}

func (d *DevProvider) CheckTransaction(_ context.Context, billNumber string) (*status.Confirmation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.settled[billNumber]; ok {
		return c, nil
	}
	return nil, status.ErrRefCodeNotFound
}

func (d *DevProvider) SetConfirmationChannel(ch chan *status.Confirmation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ch = ch
}

func (d *DevProvider) Unsubscribe(context.Context, string) {}

func (d *DevProvider) Close(context.Context) error { return nil }

// Settle records a simulated settlement and delivers it like a gateway push.
func (d *DevProvider) Settle(billNumber, refID, payer string, amount decimal.Decimal) *status.Confirmation {
	confirmation := &status.Confirmation{
		RefID:      refID,
		BillNumber: billNumber,
		Payer:      payer,
		Ccy:        "EUR",
		Amount:     amount,
		PaidAt:     time.Now(),
	}

	d.mu.Lock()
	d.settled[billNumber] = confirmation
	ch := d.ch
	d.mu.Unlock()

	if ch != nil {
		ch <- confirmation
	}
	return confirmation
}
