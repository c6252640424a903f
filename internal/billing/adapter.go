package billing

import (
	"context"
	"fmt"

	"club-system/internal/billing/qrbank"
	"club-system/internal/status"
)

// QRBankAdapter wraps the gateway implementation to conform to Provider
type QRBankAdapter struct {
	gw *qrbank.Gateway
}

func NewQRBankAdapter(ctx context.Context, cfg *qrbank.Config) (*QRBankAdapter, error) {
	gw, err := qrbank.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create qrbank gateway: %w", err)
	}

	return &QRBankAdapter{gw: gw}, nil
}

func (a *QRBankAdapter) Name() ProviderName {
	return ProviderQRBank
}

func (a *QRBankAdapter) GenerateQR(ctx context.Context, form *status.QRForm) (string, error) {
	return a.gw.GenQRCode(ctx, form)
}

func (a *QRBankAdapter) CheckTransaction(ctx context.Context, billNumber string) (*status.Confirmation, error) {
	return a.gw.CheckTransaction(ctx, billNumber)
}

func (a *QRBankAdapter) SetConfirmationChannel(ch chan *status.Confirmation) {
	a.gw.SetConfirmChannel(ch)
}

func (a *QRBankAdapter) Unsubscribe(ctx context.Context, billNumber string) {
	a.gw.Unsubscribe(ctx, billNumber)
}

func (a *QRBankAdapter) Close(ctx context.Context) error {
	// The gateway's goroutines stop with the context it was created with.
	return nil
}
