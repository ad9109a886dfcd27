package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/department"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var rejected *geofence.LocationRejectedError
	if errors.As(err, &rejected) {
		LocationRejected(w, rejected.Error(), rejected.Result)
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, auth.ErrDepartmentRequired),
		errors.Is(err, auth.ErrManagerAccessRequired),
		errors.Is(err, auth.ErrAdminAccessRequired),
		errors.Is(err, auth.ErrDepartmentForbidden):
		Forbidden(w, err.Error())

	// Configuration errors
	case errors.Is(err, geofence.ErrNoActiveOffices),
		errors.Is(err, geofence.ErrInvalidThresholds),
		errors.Is(err, department.ErrPolicyNotFound),
		errors.Is(err, department.ErrInvalidPolicy):
		ConfigurationError(w, err.Error())

	// Geofence domain errors
	case errors.Is(err, geofence.ErrOfficeNotFound):
		NotFound(w, "Office not found")
	case errors.Is(err, geofence.ErrOutsideAllowedRadius):
		BadRequest(w, err.Error(), nil)

	// Attendance domain errors
	case errors.Is(err, attendance.ErrSessionNotFound):
		NotFound(w, "Attendance session not found")
	case errors.Is(err, attendance.ErrAlreadyCheckedIn),
		errors.Is(err, attendance.ErrAlreadyCheckedOut):
		Conflict(w, err.Error())
	case errors.Is(err, attendance.ErrNotCheckedIn),
		errors.Is(err, attendance.ErrTooEarlyToCheckIn),
		errors.Is(err, attendance.ErrCheckInWindowClosed),
		errors.Is(err, attendance.ErrEarlyCheckoutReasonRequired),
		errors.Is(err, attendance.ErrPhotoRequired),
		errors.Is(err, attendance.ErrInvalidCorrection):
		BadRequest(w, err.Error(), nil)

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
