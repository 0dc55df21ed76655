package hooks

import (
	"fmt"
	"time"
)

// Notification is a human-facing message derived from an event.
type Notification struct {
	EventID     string         `json:"event_id"`
	Type        EventType      `json:"type"`
	RecipientID string         `json:"recipient_id"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Data        map[string]any `json:"data"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NotificationsFor returns the notifications an event produces. Events that
// nobody needs to hear about produce none.
func NotificationsFor(e Event) []Notification {
	data := map[string]any{"booking_id": e.BookingID}
	if e.DriverID != "" {
		data["driver_id"] = e.DriverID
	}
	if e.VehicleID != "" {
		data["vehicle_id"] = e.VehicleID
	}

	n := func(recipient, title, message string) Notification {
		return Notification{
			EventID:     e.ID,
			Type:        e.Type,
			RecipientID: recipient,
			Title:       title,
			Message:     message,
			Data:        data,
			CreatedAt:   e.OccurredAt,
		}
	}

	switch e.Type {
	case EventBookingConfirmed:
		return []Notification{
			n(e.PassengerID, "Driver Assigned", "A driver has been assigned to your booking"),
			n(e.DriverID, "New Booking", "You have been assigned a new booking"),
		}

	case EventBookingStarted:
		return []Notification{n(e.PassengerID, "Ride Started", "Your ride has started. Enjoy your trip!")}

	case EventBookingCompleted:
		msg := "Your ride is complete"
		if e.Fare != nil {
			data["fare"] = *e.Fare
			msg = fmt.Sprintf("Your ride is complete. Total fare: %.2f", *e.Fare)
		}
		return []Notification{n(e.PassengerID, "Ride Completed", msg)}

	case EventBookingCancelled:
		if e.Reason != "" {
			data["reason"] = e.Reason
		}
		out := []Notification{n(e.PassengerID, "Booking Cancelled", "Your booking has been cancelled")}
		if e.DriverID != "" {
			out = append(out, n(e.DriverID, "Booking Cancelled", "A booking assigned to you has been cancelled"))
		}
		return out

	case EventBookingRejected:
		return []Notification{n(e.PassengerID, "Driver Unavailable", "Your driver could not take this booking")}

	default:
		return nil
	}
}
