package geofence

import (
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/validator"
)

// LocationRequest is the wire form of a LocationSample. Timestamp and source
// are optional and default to the receive time and gps.
type LocationRequest struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracy_meters"`
	Timestamp      *string `json:"timestamp,omitempty"` // RFC3339
	Source         string  `json:"source,omitempty"`
}

func (r *LocationRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Latitude < -90 || r.Latitude > 90 {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if r.Longitude < -180 || r.Longitude > 180 {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if r.AccuracyMeters <= 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "accuracy_meters",
			Message: "accuracy_meters must be greater than 0",
		})
	}

	if r.Timestamp != nil && *r.Timestamp != "" {
		if _, valid := validator.IsValidDateTime(*r.Timestamp); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "timestamp",
				Message: "timestamp must be in RFC3339 format",
			})
		}
	}

	if r.Source != "" && !Source(r.Source).Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "source",
			Message: "source must be one of: gps, network, passive",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ToSample converts a validated request. receivedAt is used when the device
// did not report a fix time or dated it more than MaxClockSkew ahead.
func (r LocationRequest) ToSample(receivedAt time.Time) LocationSample {
	ts := receivedAt.UTC()
	if r.Timestamp != nil && *r.Timestamp != "" {
		if t, ok := validator.IsValidDateTime(*r.Timestamp); ok && !t.After(receivedAt.Add(MaxClockSkew)) {
			ts = t.UTC()
		}
	}

	source := SourceGPS
	if r.Source != "" {
		source = Source(r.Source)
	}

	return LocationSample{
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		AccuracyMeters: r.AccuracyMeters,
		Timestamp:      ts,
		Source:         source,
	}
}

type DetectAnomaliesRequest struct {
	Location LocationRequest `json:"location"`
	// History is optional; when empty the caller's recorded history is used.
	History []LocationRequest `json:"history,omitempty"`
}

func (r *DetectAnomaliesRequest) Validate() error {
	var errs validator.ValidationErrors

	errs = append(errs, validator.Nested("location", r.Location.Validate())...)

	for i := range r.History {
		errs = append(errs, validator.Nested("history["+validator.Itoa(i)+"]", r.History[i].Validate())...)
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}
