package billing

import (
	"context"
	"fmt"

	"club-system/config"
	"club-system/internal/billing/qrbank"
)

// New creates the configured payment gateway. The dev provider needs no
// credentials, so it is also the fallback when the gateway config is empty.
func New(ctx context.Context, name ProviderName, cfg *config.Config) (Provider, error) {
	switch name {
	case ProviderQRBank:
		if cfg.BillingBaseURL == "" {
			return nil, fmt.Errorf("billing: qrbank selected but BILLING_BASE_URL is empty")
		}
		return NewQRBankAdapter(ctx, &qrbank.Config{
			BaseURL:      cfg.BillingBaseURL,
			MerchantID:   cfg.BillingMerchantID,
			ClientID:     cfg.BillingClientID,
			ClientSecret: cfg.BillingClientSecret,
			HMACKey:      cfg.BillingHMACKey,

			PNSubKey:    cfg.BillingPNSubKey,
			PNSubSecret: cfg.BillingPNSubSecret,
			PNUUID:      cfg.BillingPNUUID,
			PNCipherKey: cfg.BillingPNCipherKey,
		})

	case ProviderDev:
		return NewDevProvider(), nil

	default:
		return nil, fmt.Errorf("billing: unsupported provider %q", name)
	}
}

// Supported returns the gateways this build can create.
func Supported() []ProviderName {
	return []ProviderName{ProviderQRBank, ProviderDev}
}
