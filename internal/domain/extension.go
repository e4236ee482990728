package domain

import "time"

// ExtensionStatus represents the current status of an extension.
type ExtensionStatus string

const (
	ExtensionStatusPending   ExtensionStatus = "PENDING"
	ExtensionStatusActive    ExtensionStatus = "ACTIVE"
	ExtensionStatusCancelled ExtensionStatus = "CANCELLED"
)

// Extension is a paid add-on that pushes a leg's effective end time later
// within the same calendar day. At most one PENDING+UNPAID extension exists
// per leg at any time.
type Extension struct {
	ID              string
	BookingLegID    string
	StartTime       time.Time
	EndTime         time.Time
	Status          ExtensionStatus
	PaymentStatus   PaymentStatus
	TotalAmount     float64
	PaymentIntentID string // tx_ref of the extension's own charge
	CreatedAt       time.Time
}

// IsMergeable reports whether a further extension request can update this
// row in place instead of creating a new one. Only an unpaid pending
// extension that produces the leg's current effective end qualifies: it has
// not been paid for yet, so repricing it cannot double-charge.
func (e *Extension) IsMergeable(effectiveEnd time.Time) bool {
	return e.Status == ExtensionStatusPending &&
		e.PaymentStatus == PaymentStatusUnpaid &&
		e.EndTime.Equal(effectiveEnd)
}
