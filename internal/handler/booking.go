package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cabdispatch/internal/domain"
	"cabdispatch/internal/service"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	bookings *service.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// LocationRequest is a pickup or dropoff point.
type LocationRequest struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// CreateBookingRequest is the HTTP request body for creating a booking.
type CreateBookingRequest struct {
	PassengerID   string          `json:"passenger_id,omitempty"` // defaults to the caller
	Pickup        LocationRequest `json:"pickup"`
	Dropoff       LocationRequest `json:"dropoff"`
	ScheduledTime *time.Time      `json:"scheduled_time,omitempty"`
	Distance      *float64        `json:"distance,omitempty"`
	Fare          *float64        `json:"fare,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// AssignDriverRequest is the HTTP request body for assigning a driver.
type AssignDriverRequest struct {
	DriverID string `json:"driver_id"`
}

// ChangeStatusRequest is the HTTP request body for a status change.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// CancelBookingRequest is the HTTP request body for cancelling a booking.
type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty"`
}

// RecordPaymentRequest is the HTTP request body for a payment outcome.
type RecordPaymentRequest struct {
	Succeeded *bool  `json:"succeeded"`
	Reference string `json:"reference,omitempty"`
}

// LocationResponse is a pickup or dropoff point.
type LocationResponse struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// BookingResponse is the HTTP response for booking data.
type BookingResponse struct {
	ID               string           `json:"id"`
	PassengerID      string           `json:"passenger_id"`
	DriverID         string           `json:"driver_id,omitempty"`
	VehicleID        string           `json:"vehicle_id,omitempty"`
	Pickup           LocationResponse `json:"pickup"`
	Dropoff          LocationResponse `json:"dropoff"`
	ScheduledTime    *time.Time       `json:"scheduled_time,omitempty"`
	Status           string           `json:"status"`
	Distance         *float64         `json:"distance,omitempty"`
	Fare             *float64         `json:"fare,omitempty"`
	PaymentStatus    string           `json:"payment_status"`
	PaymentReference string           `json:"payment_reference,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	StartTime        *time.Time       `json:"start_time,omitempty"`
	EndTime          *time.Time       `json:"end_time,omitempty"`
	NextStatuses     []string         `json:"next_statuses"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	next := domain.NextStatuses(b.Status)
	nextStatuses := make([]string, len(next))
	for i, s := range next {
		nextStatuses[i] = string(s)
	}

	return BookingResponse{
		ID:               b.ID,
		PassengerID:      b.PassengerID,
		DriverID:         b.DriverID,
		VehicleID:        b.VehicleID,
		Pickup:           LocationResponse{Address: b.Pickup.Address, Lat: b.Pickup.Lat, Lng: b.Pickup.Lon},
		Dropoff:          LocationResponse{Address: b.Dropoff.Address, Lat: b.Dropoff.Lat, Lng: b.Dropoff.Lon},
		ScheduledTime:    b.ScheduledTime,
		Status:           string(b.Status.Canonical()),
		Distance:         b.Distance,
		Fare:             b.Fare,
		PaymentStatus:    string(b.PaymentStatus),
		PaymentReference: b.PaymentReference,
		Notes:            b.Notes,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
		StartTime:        b.StartTime,
		EndTime:          b.EndTime,
		NextStatuses:     nextStatuses,
	}
}

func (l LocationRequest) toDomain() domain.Location {
	return domain.Location{Address: l.Address, Lat: l.Lat, Lon: l.Lng}
}

// Create handles POST /v1/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	passengerID := req.PassengerID
	if passengerID == "" {
		passengerID = a.ID
	}
	isAdmin := a.HasRole(domain.RoleAdmin)
	if !isAdmin && (passengerID != a.ID || !a.HasRole(domain.RolePassenger)) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "passengers may only book for themselves"})
		return
	}

	booking, err := h.bookings.Create(c.Request.Context(), service.CreateBookingRequest{
		PassengerID:   passengerID,
		Pickup:        req.Pickup.toDomain(),
		Dropoff:       req.Dropoff.toDomain(),
		ScheduledTime: req.ScheduledTime,
		Distance:      req.Distance,
		Fare:          req.Fare,
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toBookingResponse(booking))
}

// Get handles GET /v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	booking, err := h.bookings.Get(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// List handles GET /v1/bookings?passenger=&driver=&status=&limit=
func (h *BookingHandler) List(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	req := service.ListBookingsRequest{
		PassengerID: c.Query("passenger"),
		DriverID:    c.Query("driver"),
		Status:      domain.BookingStatus(strings.ToUpper(c.Query("status"))),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "invalid limit")
			return
		}
		req.Limit = limit
	}

	bookings, err := h.bookings.List(c.Request.Context(), a, req)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	respondJSON(c, http.StatusOK, gin.H{"bookings": out, "count": len(out)})
}

// AssignDriver handles POST /v1/bookings/:id/assign
func (h *BookingHandler) AssignDriver(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req AssignDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.DriverID == "" && a.HasRole(domain.RoleDriver) {
		req.DriverID = a.ID
	}

	booking, err := h.bookings.AssignDriver(c.Request.Context(), a, c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// ChangeStatus handles POST /v1/bookings/:id/status
func (h *BookingHandler) ChangeStatus(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		badRequest(c, "status is required")
		return
	}

	target := domain.BookingStatus(strings.ToUpper(req.Status))
	booking, err := h.bookings.ChangeStatus(c.Request.Context(), a, c.Param("id"), target)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// Start handles POST /v1/bookings/:id/start
func (h *BookingHandler) Start(c *gin.Context) {
	h.driverAction(c, h.bookings.StartRide)
}

// Complete handles POST /v1/bookings/:id/complete
func (h *BookingHandler) Complete(c *gin.Context) {
	h.driverAction(c, h.bookings.CompleteRide)
}

func (h *BookingHandler) driverAction(c *gin.Context, action func(ctx context.Context, bookingID, driverID string) (*domain.Booking, error)) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if !a.HasRole(domain.RoleDriver) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only the assigned driver may do this"})
		return
	}

	booking, err := action(c.Request.Context(), c.Param("id"), a.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// Cancel handles POST /v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	booking, err := h.bookings.Cancel(c.Request.Context(), a, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// RecordPayment handles POST /v1/bookings/:id/payment
func (h *BookingHandler) RecordPayment(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if !a.HasRole(domain.RoleAdmin) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only administrators may record payments"})
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Succeeded == nil {
		badRequest(c, "succeeded is required")
		return
	}

	booking, err := h.bookings.RecordPayment(c.Request.Context(), c.Param("id"), *req.Succeeded, req.Reference)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}
