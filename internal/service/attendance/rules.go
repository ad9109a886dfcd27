package attendance

import (
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/department"
)

// wholeMinutes floors d to minutes; negative durations count as zero.
func wholeMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// checkInStatus marks the check-in late once the grace period has passed.
// Late minutes are counted from the expected check-in, not from the end of grace.
func checkInStatus(schedule department.Schedule, at time.Time) (attendance.Status, int) {
	if at.After(schedule.LateAfter) {
		return attendance.StatusLate, wholeMinutes(at.Sub(schedule.ExpectedCheckIn))
	}
	return attendance.StatusPresent, 0
}

// overtimeMinutes counts time past the expected checkout once it reaches the
// department threshold.
func overtimeMinutes(policy department.Policy, schedule department.Schedule, at time.Time) int {
	minutes := wholeMinutes(at.Sub(schedule.ExpectedCheckOut))
	if minutes == 0 || minutes < policy.OvertimeThresholdMinutes {
		return 0
	}
	return minutes
}

// closedStatus downgrades a session to half day when less than half of the
// scheduled day was worked.
func closedStatus(policy department.Policy, current attendance.Status, worked int) attendance.Status {
	if worked*2 < policy.ScheduledMinutes() {
		return attendance.StatusHalfDay
	}
	return current
}

// autoCheckoutCutoff is when an open session gets force closed. Sessions in
// overtime mode stay open until the overtime cutoff, never less than the
// regular cutoff.
func autoCheckoutCutoff(policy department.Policy, session attendance.Session) time.Time {
	schedule := policy.ScheduleFor(*session.CheckInTime)
	if session.OvertimeEnabled && schedule.OvertimeCutoff.After(schedule.AutoCheckoutAt) {
		return schedule.OvertimeCutoff
	}
	return schedule.AutoCheckoutAt
}
