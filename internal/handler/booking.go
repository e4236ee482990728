package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hyre/internal/domain"
	"hyre/internal/service"
)

// BookingHandler handles HTTP requests for bookings and extensions.
type BookingHandler struct {
	bookingService   *service.BookingService
	extensionService *service.ExtensionService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService, extensionService *service.ExtensionService) *BookingHandler {
	return &BookingHandler{
		bookingService:   bookingService,
		extensionService: extensionService,
	}
}

// CreateBookingRequest is the HTTP request body for creating a booking.
type CreateBookingRequest struct {
	CarID      string    `json:"car_id"`
	UserID     string    `json:"user_id,omitempty"`
	Type       string    `json:"type"` // DAY, NIGHT, AIRPORT_PICKUP
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	GuestName  string    `json:"guest_name,omitempty"`
	GuestEmail string    `json:"guest_email,omitempty"`
	GuestPhone string    `json:"guest_phone,omitempty"`
}

// BookingResponse is the HTTP response for booking operations.
type BookingResponse struct {
	ID               string  `json:"id"`
	CarID            string  `json:"car_id"`
	UserID           string  `json:"user_id,omitempty"`
	ChauffeurID      string  `json:"chauffeur_id,omitempty"`
	Status           string  `json:"status"`
	PaymentStatus    string  `json:"payment_status"`
	Type             string  `json:"type"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	BookingReference string  `json:"booking_reference"`
	TotalAmount      float64 `json:"total_amount"`
	CancelReason     string  `json:"cancel_reason,omitempty"`
}

// CreateBookingResponse is the HTTP response for creating a booking.
type CreateBookingResponse struct {
	Booking     BookingResponse `json:"booking"`
	TxRef       string          `json:"tx_ref"`
	CheckoutURL string          `json:"checkout_url"`
}

// CreateBooking handles POST /v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	bookingType, err := service.ValidateBookingType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.bookingService.CreateBooking(c.Request.Context(), service.CreateBookingRequest{
		CarID:      req.CarID,
		UserID:     req.UserID,
		Type:       bookingType,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		GuestPhone: req.GuestPhone,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CreateBookingResponse{
		Booking:     toBookingResponse(result.Booking),
		TxRef:       result.TxRef,
		CheckoutURL: result.CheckoutURL,
	})
}

// GetBooking handles GET /v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// GetAll handles GET /v1/bookings
func (h *BookingHandler) GetAll(c *gin.Context) {
	bookings, err := h.bookingService.GetAllBookings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]BookingResponse, 0, len(bookings))
	for _, booking := range bookings {
		response = append(response, toBookingResponse(booking))
	}

	respondJSON(c, http.StatusOK, response)
}

// CancelBookingRequest is the HTTP request body for cancelling a booking.
type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CancelBooking handles POST /v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var req CancelBookingRequest
	_ = c.ShouldBindJSON(&req)

	booking, err := h.bookingService.CancelBooking(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// ExtendBookingRequest is the HTTP request body for extending a booking.
type ExtendBookingRequest struct {
	Hours int `json:"hours"`
}

// ExtendBookingResponse is the HTTP response for extending a booking.
type ExtendBookingResponse struct {
	ExtensionID     string `json:"extension_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	CheckoutURL     string `json:"checkout_url"`
}

// ExtendBooking handles POST /v1/bookings/:id/extend
func (h *BookingHandler) ExtendBooking(c *gin.Context) {
	var req ExtendBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.extensionService.CreateExtension(c.Request.Context(), c.Param("id"), req.Hours)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, ExtendBookingResponse{
		ExtensionID:     result.ExtensionID,
		PaymentIntentID: result.PaymentIntentID,
		CheckoutURL:     result.CheckoutURL,
	})
}

func toBookingResponse(booking *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:               booking.ID,
		CarID:            booking.CarID,
		UserID:           booking.UserID,
		ChauffeurID:      booking.ChauffeurID,
		Status:           string(booking.Status),
		PaymentStatus:    string(booking.PaymentStatus),
		Type:             string(booking.Type),
		StartDate:        booking.StartDate.Format(time.RFC3339),
		EndDate:          booking.EndDate.Format(time.RFC3339),
		BookingReference: booking.BookingReference,
		TotalAmount:      booking.TotalAmount,
		CancelReason:     booking.CancelReason,
	}
}
