package domain

import "time"

// PaymentTxStatus represents the provider-verified status of a payment.
type PaymentTxStatus string

const (
	PaymentTxStatusSuccessful PaymentTxStatus = "SUCCESSFUL"
	PaymentTxStatusFailed     PaymentTxStatus = "FAILED"
)

// Payment is the internal record of a provider charge, keyed by tx_ref.
// Exactly one of BookingID/ExtensionID is set; a tx_ref resolves to one
// booking xor one extension, never both.
type Payment struct {
	ID               string
	TxRef            string // unique
	ProviderChargeID string
	Amount           float64
	Status           PaymentTxStatus
	BookingID        string
	ExtensionID      string
	CreatedAt        time.Time
}
