package domain

import "time"

// BookingStatus represents the lifecycle status of a booking.
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "PENDING"
	BookingStatusConfirmed  BookingStatus = "CONFIRMED"
	BookingStatusInProgress BookingStatus = "IN_PROGRESS"
	BookingStatusCompleted  BookingStatus = "COMPLETED"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
	BookingStatusRejected   BookingStatus = "REJECTED"

	// BookingStatusDriverAssigned is accepted on input and stored data but is
	// never written: assigning a driver confirms the booking in one step.
	BookingStatusDriverAssigned BookingStatus = "DRIVER_ASSIGNED"
)

// Canonical folds DRIVER_ASSIGNED into CONFIRMED.
func (s BookingStatus) Canonical() BookingStatus {
	if s == BookingStatusDriverAssigned {
		return BookingStatusConfirmed
	}
	return s
}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	_, ok := transitions[s.Canonical()]
	return ok
}

// IsTerminal reports whether no further transitions are permitted from s.
func (s BookingStatus) IsTerminal() bool {
	c := s.Canonical()
	return c == BookingStatusCompleted || c == BookingStatusCancelled
}

// Cancellable reports whether a booking in status s may be cancelled.
func (s BookingStatus) Cancellable() bool {
	switch s.Canonical() {
	case BookingStatusPending, BookingStatusConfirmed:
		return true
	default:
		return false
	}
}

// HasDriver reports whether a booking in status s carries an assigned driver.
func (s BookingStatus) HasDriver() bool {
	switch s.Canonical() {
	case BookingStatusConfirmed, BookingStatusInProgress, BookingStatusCompleted:
		return true
	default:
		return false
	}
}

var transitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusCancelled, BookingStatusRejected},
	BookingStatusConfirmed:  {BookingStatusInProgress, BookingStatusCancelled, BookingStatusRejected},
	BookingStatusInProgress: {BookingStatusCompleted, BookingStatusRejected},
	BookingStatusRejected:   {BookingStatusPending, BookingStatusCancelled},
	BookingStatusCompleted:  nil,
	BookingStatusCancelled:  nil,
}

// CanTransition reports whether the lifecycle graph has an edge from -> to.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range transitions[from.Canonical()] {
		if next == to.Canonical() {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from s in one step.
func NextStatuses(s BookingStatus) []BookingStatus {
	next := transitions[s.Canonical()]
	out := make([]BookingStatus, len(next))
	copy(out, next)
	return out
}

// Location is an address with optional coordinates.
type Location struct {
	Address string
	Lat     *float64
	Lon     *float64
}

// Booking represents one requested trip from pickup to dropoff.
type Booking struct {
	ID               string
	PassengerID      string
	DriverID         string // empty until a driver is assigned
	VehicleID        string // empty until a driver is assigned
	Pickup           Location
	Dropoff          Location
	ScheduledTime    *time.Time
	Status           BookingStatus
	Distance         *float64
	Fare             *float64
	PaymentStatus    PaymentStatus
	PaymentReference string
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	StartTime        *time.Time
	EndTime          *time.Time
	Version          int64
}

// Clone returns a deep copy of b.
func (b *Booking) Clone() *Booking {
	c := *b
	c.Pickup = b.Pickup.clone()
	c.Dropoff = b.Dropoff.clone()
	c.ScheduledTime = cloneTime(b.ScheduledTime)
	c.StartTime = cloneTime(b.StartTime)
	c.EndTime = cloneTime(b.EndTime)
	c.Distance = cloneFloat(b.Distance)
	c.Fare = cloneFloat(b.Fare)
	return &c
}

func (l Location) clone() Location {
	return Location{Address: l.Address, Lat: cloneFloat(l.Lat), Lon: cloneFloat(l.Lon)}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
