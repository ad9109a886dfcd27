package attendance

import "errors"

// Attendance domain errors
var (
	// Check-in errors
	ErrAlreadyCheckedIn    = errors.New("you have already checked in today")
	ErrTooEarlyToCheckIn   = errors.New("too early to check in")
	ErrCheckInWindowClosed = errors.New("check-in window is closed for today")

	// Check-out errors
	ErrNotCheckedIn                = errors.New("you have not checked in yet")
	ErrAlreadyCheckedOut           = errors.New("you have already checked out")
	ErrEarlyCheckoutReasonRequired = errors.New("a reason is required to check out early")

	// Evidence
	ErrPhotoRequired = errors.New("a photo is required")

	// General errors
	ErrSessionNotFound   = errors.New("attendance record not found")
	ErrInvalidCorrection = errors.New("invalid attendance correction")
)
