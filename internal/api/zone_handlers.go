package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chipzone/server/internal/analytics"
	"github.com/chipzone/server/internal/geometry"
	"github.com/chipzone/server/internal/zones"
	"github.com/go-playground/validator/v10"
)

// ZoneService is the zone CRUD surface used by the handlers.
type ZoneService interface {
	CreateZone(ctx context.Context, name string, ring []geometry.GeoPoint) (*zones.Zone, error)
	UpdateZone(ctx context.Context, id int64, name string, ring []geometry.GeoPoint) (*zones.Zone, error)
	DeleteZone(ctx context.Context, id int64) error
	GetZone(ctx context.Context, id int64) (*zones.Zone, error)
}

// AnalyticsService computes zone occupancy analytics.
type AnalyticsService interface {
	ComputeAnalytics(ctx context.Context, zoneID int64, start, end time.Time) (*analytics.Result, error)
}

// ZoneHandlers manages HTTP handlers for zone management.
type ZoneHandlers struct {
	zones     ZoneService
	analytics AnalyticsService
	validator *validator.Validate
}

// NewZoneHandlers creates a new ZoneHandlers instance.
func NewZoneHandlers(zoneService ZoneService, analyticsService AnalyticsService) *ZoneHandlers {
	return &ZoneHandlers{
		zones:     zoneService,
		analytics: analyticsService,
		validator: newValidator(),
	}
}

type pointRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"required,min=-180,max=180"`
}

type zoneRequest struct {
	Name       string         `json:"name" validate:"required"`
	AreaPoints []pointRequest `json:"areaPoints" validate:"required,min=3,dive"`
}

func (r *zoneRequest) ring() []geometry.GeoPoint {
	ring := make([]geometry.GeoPoint, len(r.AreaPoints))
	for i, p := range r.AreaPoints {
		ring[i] = geometry.GeoPoint{Latitude: *p.Latitude, Longitude: *p.Longitude}
	}
	return ring
}

type pointResponse struct {
	ID        int64   `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type zoneResponse struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	AreaPoints []pointResponse `json:"areaPoints"`
}

// CreateZone handles POST /api/zones
func (h *ZoneHandlers) CreateZone(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeZoneRequest(w, r)
	if !ok {
		return
	}

	zone, err := h.zones.CreateZone(r.Context(), req.Name, req.ring())
	if err != nil {
		respondWithZoneError(w, "CreateZone", err)
		return
	}
	writeJSON(w, http.StatusCreated, toZoneResponse(zone))
}

// GetZone handles GET /api/zones/{zone_id}
func (h *ZoneHandlers) GetZone(w http.ResponseWriter, r *http.Request) {
	zoneID, err := extractZoneID(r.URL.Path)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	zone, err := h.zones.GetZone(r.Context(), zoneID)
	if err != nil {
		respondWithZoneError(w, "GetZone", err)
		return
	}
	writeJSON(w, http.StatusOK, toZoneResponse(zone))
}

// UpdateZone handles PUT /api/zones/{zone_id}
func (h *ZoneHandlers) UpdateZone(w http.ResponseWriter, r *http.Request) {
	zoneID, err := extractZoneID(r.URL.Path)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, ok := h.decodeZoneRequest(w, r)
	if !ok {
		return
	}

	zone, err := h.zones.UpdateZone(r.Context(), zoneID, req.Name, req.ring())
	if err != nil {
		respondWithZoneError(w, "UpdateZone", err)
		return
	}
	writeJSON(w, http.StatusOK, toZoneResponse(zone))
}

// DeleteZone handles DELETE /api/zones/{zone_id}
func (h *ZoneHandlers) DeleteZone(w http.ResponseWriter, r *http.Request) {
	zoneID, err := extractZoneID(r.URL.Path)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.zones.DeleteZone(r.Context(), zoneID); err != nil {
		respondWithZoneError(w, "DeleteZone", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetZoneAnalytics handles GET /api/zones/{zone_id}/analytics?startDate=&endDate=
func (h *ZoneHandlers) GetZoneAnalytics(w http.ResponseWriter, r *http.Request) {
	zoneID, err := extractZoneID(r.URL.Path)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	start, err := parseTimeParam(query.Get("startDate"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid startDate: %v", err))
		return
	}
	end, err := parseTimeParam(query.Get("endDate"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid endDate: %v", err))
		return
	}

	result, err := h.analytics.ComputeAnalytics(r.Context(), zoneID, start, end)
	if err != nil {
		respondWithZoneError(w, "GetZoneAnalytics", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ZoneHandlers) decodeZoneRequest(w http.ResponseWriter, r *http.Request) (*zoneRequest, bool) {
	var req zoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if err := h.validator.Struct(&req); err != nil {
		sendValidationError(w, err)
		return nil, false
	}
	return &req, true
}

// respondWithZoneError maps zone and analytics errors to HTTP responses.
func respondWithZoneError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, analytics.ErrInvalidWindow) {
		respondWithError(w, http.StatusBadRequest, "endDate must be after startDate")
		return
	}

	switch zones.Kind(err) {
	case "invalid_geometry":
		respondWithError(w, http.StatusBadRequest, "Invalid zone geometry")
	case "invalid_name":
		respondWithError(w, http.StatusBadRequest, "Zone name must not be empty")
	case "not_found":
		respondWithError(w, http.StatusNotFound, "Zone not found")
	case "duplicate_name":
		respondWithError(w, http.StatusConflict, "Zone name already exists")
	case "duplicate_point_set":
		respondWithError(w, http.StatusConflict, "A zone with the same points already exists")
	case "geometry_conflict":
		var conflictErr *zones.ConflictError
		var conflicts []zones.ConflictZoneInfo
		if errors.As(err, &conflictErr) {
			conflicts = conflictErr.Conflicts
		}
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":     "zone_conflict",
			"message":   err.Error(),
			"conflicts": conflicts,
		})
	case "unavailable":
		log.Printf("[API] %s storage unavailable: %v", op, err)
		respondWithError(w, http.StatusServiceUnavailable, "Storage temporarily unavailable")
	default:
		log.Printf("[API] %s error: %v", op, err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func extractZoneID(path string) (int64, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 || parts[0] != "api" || parts[1] != "zones" {
		return 0, fmt.Errorf("invalid path")
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid zone ID")
	}
	return id, nil
}

func parseTimeParam(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("missing value")
	}
	return time.Parse(time.RFC3339, value)
}

func toZoneResponse(zone *zones.Zone) *zoneResponse {
	if zone == nil {
		return nil
	}
	points := make([]pointResponse, len(zone.AreaPoints))
	for i, p := range zone.AreaPoints {
		points[i] = pointResponse{ID: p.ID, Latitude: p.Latitude, Longitude: p.Longitude}
	}
	return &zoneResponse{
		ID:         zone.ID,
		Name:       zone.Name,
		AreaPoints: points,
	}
}

// respondWithError sends an error response in JSON format.
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
