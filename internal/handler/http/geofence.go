package http

import (
	"net/http"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/jwt"
	"github.com/goccy/go-json"
)

type GeofenceHandler interface {
	Validate(w http.ResponseWriter, r *http.Request)
	Detect(w http.ResponseWriter, r *http.Request)
	Anomalies(w http.ResponseWriter, r *http.Request)
	ListOffices(w http.ResponseWriter, r *http.Request)
}

type geofenceHandlerImpl struct {
	geofenceService geofence.GeofenceService
	clock           clock.Clock
}

func NewGeofenceHandler(geofenceService geofence.GeofenceService, clk clock.Clock) GeofenceHandler {
	return &geofenceHandlerImpl{
		geofenceService: geofenceService,
		clock:           clk,
	}
}

func (h *geofenceHandlerImpl) decodeLocation(w http.ResponseWriter, r *http.Request) (geofence.LocationSample, bool) {
	var req geofence.LocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return geofence.LocationSample{}, false
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return geofence.LocationSample{}, false
	}

	return req.ToSample(h.clock.Now()), true
}

// Validate implements GeofenceHandler.
func (h *geofenceHandlerImpl) Validate(w http.ResponseWriter, r *http.Request) {
	sample, ok := h.decodeLocation(w, r)
	if !ok {
		return
	}

	result, err := h.geofenceService.ValidateLocation(r.Context(), sample)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Detect implements GeofenceHandler.
func (h *geofenceHandlerImpl) Detect(w http.ResponseWriter, r *http.Request) {
	sample, ok := h.decodeLocation(w, r)
	if !ok {
		return
	}

	result, err := h.geofenceService.DetectOffice(r.Context(), sample)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Anomalies implements GeofenceHandler. Without an explicit history the
// caller's recorded history is used; the sample is not recorded.
func (h *geofenceHandlerImpl) Anomalies(w http.ResponseWriter, r *http.Request) {
	principal, err := jwt.PrincipalFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req geofence.DetectAnomaliesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	now := h.clock.Now()
	history := make([]geofence.LocationSample, 0, len(req.History))
	for _, loc := range req.History {
		history = append(history, loc.ToSample(now))
	}
	if len(history) == 0 {
		history = h.geofenceService.History(r.Context(), principal.UserID)
	}

	report := h.geofenceService.DetectAnomalies(r.Context(), req.Location.ToSample(now), history)
	response.Success(w, report)
}

// ListOffices implements GeofenceHandler.
func (h *geofenceHandlerImpl) ListOffices(w http.ResponseWriter, r *http.Request) {
	offices, err := h.geofenceService.ListActiveOffices(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, offices)
}
