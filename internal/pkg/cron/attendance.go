package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
)

type AttendanceJobs struct {
	attendanceService attendance.AttendanceService
	geofenceService   geofence.GeofenceService

	autoCheckoutInterval time.Duration
	pruneInterval        time.Duration
}

func NewAttendanceJobs(
	attendanceService attendance.AttendanceService,
	geofenceService geofence.GeofenceService,
	autoCheckoutInterval time.Duration,
	pruneInterval time.Duration,
) *AttendanceJobs {
	return &AttendanceJobs{
		attendanceService:    attendanceService,
		geofenceService:      geofenceService,
		autoCheckoutInterval: autoCheckoutInterval,
		pruneInterval:        pruneInterval,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("auto_checkout", j.autoCheckoutInterval, j.AutoCheckout)
	scheduler.AddJob("prune_location_history", j.pruneInterval, j.PruneLocationHistory)
}

// AutoCheckout closes open sessions past their department cutoff. A session
// that fails to close is counted and retried on the next tick.
func (j *AttendanceJobs) AutoCheckout(ctx context.Context) error {
	summary, err := j.attendanceService.AutoCheckout(ctx)
	if err != nil {
		return fmt.Errorf("failed to run auto-checkout: %w", err)
	}

	slog.Debug("Cron: Auto-checkout sweep", "scanned", summary.Scanned, "closed", summary.Closed)
	return nil
}

func (j *AttendanceJobs) PruneLocationHistory(ctx context.Context) error {
	dropped := j.geofenceService.PruneHistory(ctx)
	slog.Debug("Cron: Location history pruned", "users_dropped", dropped)
	return nil
}
