package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cabdispatch/internal/domain"
	"cabdispatch/internal/service"
)

// VehicleHandler handles HTTP requests for vehicles.
type VehicleHandler struct {
	vehicles *service.VehicleService
}

// NewVehicleHandler creates a new VehicleHandler.
func NewVehicleHandler(vehicles *service.VehicleService) *VehicleHandler {
	return &VehicleHandler{vehicles: vehicles}
}

// RegisterVehicleRequest is the HTTP request body for vehicle registration.
type RegisterVehicleRequest struct {
	DriverID     string   `json:"driver_id"`
	LicensePlate string   `json:"license_plate"`
	Type         string   `json:"type"`
	Capacity     int      `json:"capacity"`
	BaseFare     *float64 `json:"base_fare,omitempty"`
	RatePerKm    *float64 `json:"rate_per_km,omitempty"`
}

// SetVehicleStatusRequest is the HTTP request body for toggling availability.
type SetVehicleStatusRequest struct {
	Status string `json:"status"`
}

// UpdateLocationRequest is the HTTP request body for location updates.
type UpdateLocationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// VehicleResponse is the HTTP response for vehicle data.
type VehicleResponse struct {
	ID                string     `json:"id"`
	LicensePlate      string     `json:"license_plate"`
	DriverID          string     `json:"driver_id"`
	Status            string     `json:"status"`
	Type              string     `json:"type"`
	Capacity          int        `json:"capacity"`
	BaseFare          *float64   `json:"base_fare,omitempty"`
	RatePerKm         *float64   `json:"rate_per_km,omitempty"`
	Lat               *float64   `json:"lat,omitempty"`
	Lng               *float64   `json:"lng,omitempty"`
	LocationUpdatedAt *time.Time `json:"location_updated_at,omitempty"`
}

// NearbyVehicleResponse is one entry of a nearby search.
type NearbyVehicleResponse struct {
	VehicleID  string  `json:"vehicle_id"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	DistanceKm float64 `json:"distance_km"`
}

func toVehicleResponse(v *domain.Vehicle) VehicleResponse {
	return VehicleResponse{
		ID:                v.ID,
		LicensePlate:      v.LicensePlate,
		DriverID:          v.DriverID,
		Status:            string(v.Status),
		Type:              string(v.Type),
		Capacity:          v.Capacity,
		BaseFare:          v.BaseFare,
		RatePerKm:         v.RatePerKm,
		Lat:               v.Lat,
		Lng:               v.Lon,
		LocationUpdatedAt: v.LocationUpdatedAt,
	}
}

// Register handles POST /v1/vehicles
func (h *VehicleHandler) Register(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req RegisterVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.DriverID == "" && a.HasRole(domain.RoleDriver) {
		req.DriverID = a.ID
	}

	vehicle, err := h.vehicles.Register(c.Request.Context(), a, service.RegisterVehicleRequest{
		DriverID:     req.DriverID,
		LicensePlate: req.LicensePlate,
		Type:         domain.VehicleType(req.Type),
		Capacity:     req.Capacity,
		BaseFare:     req.BaseFare,
		RatePerKm:    req.RatePerKm,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toVehicleResponse(vehicle))
}

// Get handles GET /v1/vehicles/:id
func (h *VehicleHandler) Get(c *gin.Context) {
	vehicle, err := h.vehicles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toVehicleResponse(vehicle))
}

// ListAvailable handles GET /v1/vehicles?type=
func (h *VehicleHandler) ListAvailable(c *gin.Context) {
	vehicles, err := h.vehicles.ListAvailable(c.Request.Context(), domain.VehicleType(c.Query("type")))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]VehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, toVehicleResponse(v))
	}
	respondJSON(c, http.StatusOK, gin.H{"vehicles": out, "count": len(out)})
}

// Nearby handles GET /v1/vehicles/nearby?lat=&lng=&radius_km=
func (h *VehicleHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		badRequest(c, "lat and lng are required")
		return
	}
	radius := 5.0
	if raw := c.Query("radius_km"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			badRequest(c, "invalid radius_km")
			return
		}
		radius = r
	}

	found, err := h.vehicles.Nearby(c.Request.Context(), lat, lng, radius)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]NearbyVehicleResponse, 0, len(found))
	for _, v := range found {
		out = append(out, NearbyVehicleResponse{VehicleID: v.VehicleID, Lat: v.Lat, Lng: v.Lng, DistanceKm: v.DistKm})
	}
	respondJSON(c, http.StatusOK, gin.H{"vehicles": out, "count": len(out)})
}

// SetStatus handles POST /v1/vehicles/:id/status
func (h *VehicleHandler) SetStatus(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req SetVehicleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		badRequest(c, "status is required")
		return
	}

	status := domain.VehicleStatus(strings.ToUpper(req.Status))
	vehicle, err := h.vehicles.SetStatus(c.Request.Context(), a, c.Param("id"), status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toVehicleResponse(vehicle))
}

// UpdateLocation handles POST /v1/vehicles/:id/location
func (h *VehicleHandler) UpdateLocation(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Lat == nil || req.Lng == nil {
		badRequest(c, "lat and lng are required")
		return
	}

	vehicle, err := h.vehicles.UpdateLocation(c.Request.Context(), a, c.Param("id"), *req.Lat, *req.Lng)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toVehicleResponse(vehicle))
}
