package domain

import "time"

// VehicleStatus represents the availability of a vehicle.
type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "AVAILABLE"
	VehicleStatusBooked      VehicleStatus = "BOOKED"
	VehicleStatusInRide      VehicleStatus = "IN_RIDE"
	VehicleStatusOffline     VehicleStatus = "OFFLINE"
	VehicleStatusMaintenance VehicleStatus = "MAINTENANCE"
)

// Valid reports whether s is a known vehicle status.
func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleStatusAvailable, VehicleStatusBooked, VehicleStatusInRide,
		VehicleStatusOffline, VehicleStatusMaintenance:
		return true
	default:
		return false
	}
}

// Engaged reports whether the vehicle is serving a booking.
func (s VehicleStatus) Engaged() bool {
	return s == VehicleStatusBooked || s == VehicleStatusInRide
}

// VehicleType is the class of a vehicle, e.g. SEDAN or SUV.
type VehicleType string

const (
	VehicleTypeHatchback VehicleType = "HATCHBACK"
	VehicleTypeSedan     VehicleType = "SEDAN"
	VehicleTypeSUV       VehicleType = "SUV"
	VehicleTypeVan       VehicleType = "VAN"
)

// Valid reports whether t is a known vehicle type.
func (t VehicleType) Valid() bool {
	switch t {
	case VehicleTypeHatchback, VehicleTypeSedan, VehicleTypeSUV, VehicleTypeVan:
		return true
	default:
		return false
	}
}

// Vehicle represents a driver's cab.
type Vehicle struct {
	ID                string
	LicensePlate      string
	DriverID          string
	Status            VehicleStatus
	Type              VehicleType
	Capacity          int
	BaseFare          *float64 // set together with RatePerKm or not at all
	RatePerKm         *float64
	Lat               *float64
	Lon               *float64
	LocationUpdatedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Version           int64
}

// Clone returns a deep copy of v.
func (v *Vehicle) Clone() *Vehicle {
	c := *v
	c.BaseFare = cloneFloat(v.BaseFare)
	c.RatePerKm = cloneFloat(v.RatePerKm)
	c.Lat = cloneFloat(v.Lat)
	c.Lon = cloneFloat(v.Lon)
	c.LocationUpdatedAt = cloneTime(v.LocationUpdatedAt)
	return &c
}
