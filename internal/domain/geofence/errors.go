package geofence

import (
	"errors"
	"strings"
)

var (
	ErrNoActiveOffices      = errors.New("no offices configured")
	ErrOfficeNotFound       = errors.New("office location not found")
	ErrOutsideAllowedRadius = errors.New("you are outside the allowed radius")
	ErrInvalidThresholds    = errors.New("invalid geofence thresholds")
)

// LocationRejectedError carries the validation outcome so callers can show
// the recommendations to the user.
type LocationRejectedError struct {
	Result ValidationResult
}

func (e *LocationRejectedError) Error() string {
	if len(e.Result.Recommendations) == 0 {
		return ErrOutsideAllowedRadius.Error()
	}
	return ErrOutsideAllowedRadius.Error() + ": " + strings.Join(e.Result.Recommendations, "; ")
}

func (e *LocationRejectedError) Unwrap() error {
	return ErrOutsideAllowedRadius
}
