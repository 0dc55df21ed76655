// Package hooks delivers booking lifecycle events to outside systems after
// the change that produced them has been committed.
package hooks

import (
	"time"

	"github.com/google/uuid"

	"cabdispatch/internal/domain"
)

// EventType identifies a lifecycle event.
type EventType string

const (
	EventBookingConfirmed EventType = "booking.confirmed"
	EventBookingStarted   EventType = "booking.started"
	EventBookingCompleted EventType = "booking.completed"
	EventBookingCancelled EventType = "booking.cancelled"
	EventBookingRejected  EventType = "booking.rejected"
)

// Event is a snapshot of a booking at the moment a transition committed.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	BookingID   string    `json:"booking_id"`
	PassengerID string    `json:"passenger_id"`
	DriverID    string    `json:"driver_id,omitempty"`
	VehicleID   string    `json:"vehicle_id,omitempty"`
	Status      string    `json:"status"`
	Fare        *float64  `json:"fare,omitempty"`
	Distance    *float64  `json:"distance,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	ActorID     string    `json:"actor_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewEvent builds an event from the committed booking. driverID is passed
// separately because cancellation and rejection clear it on the booking.
func NewEvent(t EventType, b *domain.Booking, driverID, vehicleID, actorID, reason string) Event {
	if driverID == "" {
		driverID = b.DriverID
	}
	if vehicleID == "" {
		vehicleID = b.VehicleID
	}
	return Event{
		ID:          uuid.New().String(),
		Type:        t,
		BookingID:   b.ID,
		PassengerID: b.PassengerID,
		DriverID:    driverID,
		VehicleID:   vehicleID,
		Status:      string(b.Status),
		Fare:        b.Fare,
		Distance:    b.Distance,
		Reason:      reason,
		ActorID:     actorID,
		OccurredAt:  time.Now().UTC(),
	}
}

// EventForStatus maps a committed target status to its event type.
func EventForStatus(s domain.BookingStatus) (EventType, bool) {
	switch s.Canonical() {
	case domain.BookingStatusConfirmed:
		return EventBookingConfirmed, true
	case domain.BookingStatusInProgress:
		return EventBookingStarted, true
	case domain.BookingStatusCompleted:
		return EventBookingCompleted, true
	case domain.BookingStatusCancelled:
		return EventBookingCancelled, true
	case domain.BookingStatusRejected:
		return EventBookingRejected, true
	default:
		return "", false
	}
}
