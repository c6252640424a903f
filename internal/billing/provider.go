// Package billing integrates the club with external payment gateways.
package billing

import (
	"context"

	"club-system/internal/status"
)

// ProviderName represents the supported payment gateways
type ProviderName string

const (
	ProviderQRBank ProviderName = "qrbank"
	ProviderDev    ProviderName = "dev"
)

// Provider defines the common interface for all payment gateways
type Provider interface {
	// Name returns the gateway identifier
	Name() ProviderName

	// GenerateQR creates a scannable QR payload for the bill and starts
	// watching for its confirmation
	GenerateQR(ctx context.Context, form *status.QRForm) (string, error)

	// CheckTransaction asks the gateway for the state of a bill
	CheckTransaction(ctx context.Context, billNumber string) (*status.Confirmation, error)

	// SetConfirmationChannel sets the channel confirmations are delivered on
	SetConfirmationChannel(ch chan *status.Confirmation)

	// Unsubscribe stops watching a bill
	Unsubscribe(ctx context.Context, billNumber string)

	// Close gracefully closes any gateway connections
	Close(ctx context.Context) error
}
