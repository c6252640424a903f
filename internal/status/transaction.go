package status

import (
	"time"

	"github.com/shopspring/decimal"
)

// Confirmation is a settled payment as reported by the gateway.
type Confirmation struct {
	RefID         string          `json:"ref_id"`
	BillNumber    string          `json:"bill_number"`
	Payer         string          `json:"payer"`
	AccountNumber string          `json:"account_number"`
	Ccy           string          `json:"ccy"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAt        time.Time       `json:"paid_at"`
}

// QRForm carries everything a gateway needs to issue a payment QR.
type QRForm struct {
	BillNumber     string          `json:"bill_number"`
	ReferenceLabel string          `json:"reference_label"`
	TerminalLabel  string          `json:"terminal_label"`
	Phone          string          `json:"phone"`
	MerchantID     string          `json:"merchant_id"`
	Amount         decimal.Decimal `json:"amount"`
}
