package attendance

import (
	"context"
)

// AttendanceService runs the check-in / check-out state machine.
type AttendanceService interface {
	// CheckIn opens the user's session for today.
	CheckIn(ctx context.Context, req CheckInRequest) (SessionResponse, error)

	// CheckOut closes the user's open session.
	CheckOut(ctx context.Context, req CheckOutRequest) (SessionResponse, error)

	// EnableOvertime defers auto-checkout of the open session to the overtime cutoff.
	EnableOvertime(ctx context.Context, req EnableOvertimeRequest) (SessionResponse, error)

	// GetToday returns the user's session for the current department-local day, if any.
	GetToday(ctx context.Context, userID, department string) (*SessionResponse, error)

	GetMyAttendance(ctx context.Context, filter MyAttendanceFilter) ([]SessionResponse, error)

	// Department views (admin/manager)
	ListDepartment(ctx context.Context, filter DepartmentFilter) ([]SessionResponse, error)
	DepartmentStats(ctx context.Context, filter DepartmentFilter) (DepartmentStats, error)
	LiveRoster(ctx context.Context, department string) ([]RosterEntry, error)

	// CorrectSession applies an administrative override. It does not run the state machine.
	CorrectSession(ctx context.Context, req CorrectSessionRequest) (SessionResponse, error)

	// AutoCheckout closes every open session past its department cutoff.
	AutoCheckout(ctx context.Context) (AutoCheckoutSummary, error)
}
