package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/department"
	"golang.org/x/sync/errgroup"
)

// AutoCheckout implements attendance.AttendanceService. Sessions are handled
// independently; a failure on one is logged and counted, never returned.
func (s *AttendanceServiceImpl) AutoCheckout(ctx context.Context) (attendance.AutoCheckoutSummary, error) {
	open, err := s.SessionRepository.ListOpen(ctx)
	if err != nil {
		return attendance.AutoCheckoutSummary{}, fmt.Errorf("failed to list open sessions: %w", err)
	}

	var closed, skipped, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(s.sweepConcurrency)
	for _, session := range open {
		session := session
		g.Go(func() error {
			done, err := s.autoCheckoutOne(ctx, session)
			switch {
			case err != nil:
				failed.Add(1)
				slog.Error("Failed to auto-close attendance session",
					"session_id", session.ID,
					"user_id", session.UserID,
					"department", session.Department,
					"error", err,
				)
			case done:
				closed.Add(1)
			default:
				skipped.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := attendance.AutoCheckoutSummary{
		Scanned: len(open),
		Closed:  int(closed.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
	}
	if summary.Closed > 0 || summary.Failed > 0 {
		slog.Info("Auto-checkout sweep finished",
			"scanned", summary.Scanned,
			"closed", summary.Closed,
			"failed", summary.Failed,
		)
	}
	return summary, nil
}

func (s *AttendanceServiceImpl) autoCheckoutOne(ctx context.Context, session attendance.Session) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	unlock := s.locks.Lock(session.UserID)
	defer unlock()

	policy, err := s.policy(ctx, session.Department)
	if err != nil {
		return false, err
	}
	if s.clock.Now().Before(autoCheckoutCutoff(policy, session)) {
		return false, nil
	}
	return s.autoClose(ctx, policy, session)
}

// autoClose force-closes session at the expected checkout time without
// overtime. It reports false if the session was already closed. Must be
// called with the user's lock held.
func (s *AttendanceServiceImpl) autoClose(ctx context.Context, policy department.Policy, session attendance.Session) (bool, error) {
	if session.CheckInTime == nil {
		return false, nil
	}

	checkout := policy.ScheduleFor(*session.CheckInTime).ExpectedCheckOut.UTC()
	if checkout.Before(*session.CheckInTime) {
		checkout = *session.CheckInTime
	}
	worked := wholeMinutes(checkout.Sub(*session.CheckInTime))
	reason := autoCloseReason

	session.CheckOutTime = &checkout
	session.OvertimeMinutes = 0
	session.WorkMinutes = &worked
	session.Status = closedStatus(policy, session.Status, worked)
	session.Reason = &reason
	session.AutoClosed = true

	closed, err := s.SessionRepository.Close(ctx, session)
	if err != nil {
		return false, fmt.Errorf("failed to close session %s: %w", session.ID, err)
	}
	if !closed {
		return false, nil
	}

	slog.Info("Attendance session auto-closed",
		"session_id", session.ID,
		"user_id", session.UserID,
		"department", session.Department,
		"overtime_enabled", session.OvertimeEnabled,
	)
	s.afterWrite(session, "attendance.auto_closed")
	return true, nil
}
