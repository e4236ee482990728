package domain

// PlatformRates holds the time-scoped percentage rates used to price
// bookings, extensions and chauffeur payouts. Read-only to this service.
type PlatformRates struct {
	VATRatePercent         float64
	PlatformFeeRatePercent float64
	CommissionRatePercent  float64
}
