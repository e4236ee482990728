package domain

// CarApprovalStatus represents the moderation state of a listed car.
type CarApprovalStatus string

const (
	CarApprovalPending  CarApprovalStatus = "PENDING"
	CarApprovalApproved CarApprovalStatus = "APPROVED"
	CarApprovalRejected CarApprovalStatus = "REJECTED"
)

// CarStatus represents the operational state of a car.
type CarStatus string

const (
	CarStatusAvailable CarStatus = "AVAILABLE"
	CarStatusBooked    CarStatus = "BOOKED"
	CarStatusOnHold    CarStatus = "ON_HOLD"
	CarStatusInService CarStatus = "IN_SERVICE"
)

// Car represents a listed vehicle with its assigned chauffeur.
type Car struct {
	ID             string
	Name           string
	ChauffeurID    string
	ApprovalStatus CarApprovalStatus
	Status         CarStatus
	RatePerHour    float64
	RatePerDay     float64
}
