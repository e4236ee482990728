package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hyre/internal/repository"
	"hyre/internal/service"
)

// CarHandler handles HTTP requests for cars.
type CarHandler struct {
	availability *service.AvailabilityService
	carRepo      repository.CarRepository
}

// NewCarHandler creates a new CarHandler.
func NewCarHandler(availability *service.AvailabilityService, carRepo repository.CarRepository) *CarHandler {
	return &CarHandler{
		availability: availability,
		carRepo:      carRepo,
	}
}

// CarResponse is the HTTP response for a car.
type CarResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	ApprovalStatus string  `json:"approval_status"`
	Status         string  `json:"status"`
	RatePerHour    float64 `json:"rate_per_hour"`
	RatePerDay     float64 `json:"rate_per_day"`
}

// GetAll handles GET /v1/cars
func (h *CarHandler) GetAll(c *gin.Context) {
	cars, err := h.carRepo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]CarResponse, 0, len(cars))
	for _, car := range cars {
		response = append(response, CarResponse{
			ID:             car.ID,
			Name:           car.Name,
			ApprovalStatus: string(car.ApprovalStatus),
			Status:         string(car.Status),
			RatePerHour:    car.RatePerHour,
			RatePerDay:     car.RatePerDay,
		})
	}

	respondJSON(c, http.StatusOK, response)
}

// AvailabilityResponse is the HTTP response for an availability check.
type AvailabilityResponse struct {
	Available bool                 `json:"available"`
	Errors    []service.FieldError `json:"errors,omitempty"`
}

// CheckAvailability handles GET /v1/cars/:id/availability?start=...&end=...
func (h *CarHandler) CheckAvailability(c *gin.Context) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid start time, expected RFC3339"})
		return
	}

	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid end time, expected RFC3339"})
		return
	}

	result, err := h.availability.CheckAvailability(c.Request.Context(), c.Param("id"), start, end, c.Query("exclude_booking_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if result.CarMissing {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Car not found"})
		return
	}

	respondJSON(c, http.StatusOK, AvailabilityResponse{
		Available: result.Valid,
		Errors:    result.Errors,
	})
}
