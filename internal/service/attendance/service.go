package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/department"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/cache"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/geo"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/service/file"
)

const (
	defaultSweepConcurrency = 8
	autoCloseReason         = "auto-closed: no check-out recorded before the department cutoff"
)

type AttendanceServiceImpl struct {
	attendance.SessionRepository
	department.PolicyRepository
	geofenceService geofence.GeofenceService
	fileService     file.FileService
	cache           *cache.Cache
	hub             *sse.Hub
	clock           clock.Clock
	locks           *userLocks

	relocationMeters float64
	sweepConcurrency int
}

func NewAttendanceService(
	sessionRepo attendance.SessionRepository,
	policyRepo department.PolicyRepository,
	geofenceService geofence.GeofenceService,
	fileService file.FileService,
	c *cache.Cache,
	hub *sse.Hub,
	clk clock.Clock,
	thresholds geofence.Thresholds,
) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		SessionRepository: sessionRepo,
		PolicyRepository:  policyRepo,
		geofenceService:   geofenceService,
		fileService:       fileService,
		cache:             c,
		hub:               hub,
		clock:             clk,
		locks:             newUserLocks(),
		relocationMeters:  thresholds.CheckoutRelocationMeters,
		sweepConcurrency:  defaultSweepConcurrency,
	}
}

func (s *AttendanceServiceImpl) policy(ctx context.Context, name string) (department.Policy, error) {
	return cache.GetOrCompute(ctx, s.cache, cache.KeyDepartmentPolicy(name), cache.TTLDepartmentTime,
		func(ctx context.Context) (department.Policy, error) {
			p, err := s.PolicyRepository.Get(ctx, name)
			if err != nil {
				return department.Policy{}, fmt.Errorf("failed to get policy for department %q: %w", name, err)
			}
			return p, nil
		})
}

// CheckIn implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) CheckIn(ctx context.Context, req attendance.CheckInRequest) (attendance.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.SessionResponse{}, err
	}

	unlock := s.locks.Lock(req.UserID)
	defer unlock()

	now := s.clock.Now().UTC()

	policy, err := s.policy(ctx, req.Department)
	if err != nil {
		return attendance.SessionResponse{}, err
	}
	schedule := policy.ScheduleFor(now)

	if now.Before(schedule.EarliestCheckIn) {
		return attendance.SessionResponse{}, fmt.Errorf("%w: check-in opens at %s",
			attendance.ErrTooEarlyToCheckIn, schedule.EarliestCheckIn.Format("15:04"))
	}
	if !now.Before(schedule.ExpectedCheckOut) {
		return attendance.SessionResponse{}, fmt.Errorf("%w: the working day ended at %s",
			attendance.ErrCheckInWindowClosed, schedule.ExpectedCheckOut.Format("15:04"))
	}

	existing, err := s.SessionRepository.GetByUserAndDate(ctx, req.UserID, schedule.Date)
	if err != nil {
		return attendance.SessionResponse{}, fmt.Errorf("failed to check today's attendance: %w", err)
	}
	if existing != nil {
		return attendance.SessionResponse{}, attendance.ErrAlreadyCheckedIn
	}

	if err := s.closeStaleSession(ctx, req.UserID, schedule.Date); err != nil {
		return attendance.SessionResponse{}, err
	}

	sample := req.Location.ToSample(now)
	validation, err := s.geofenceService.ValidateLocation(ctx, sample)
	if err != nil {
		return attendance.SessionResponse{}, err
	}

	hasPhoto := req.PhotoURL != nil || req.File != nil
	mode := attendance.WorkModeOffice
	if !validation.IsValid {
		if !policy.AllowRemoteWork {
			return attendance.SessionResponse{}, &geofence.LocationRejectedError{Result: validation}
		}
		if !hasPhoto {
			return attendance.SessionResponse{}, fmt.Errorf("%w: checking in away from the office requires a photo", attendance.ErrPhotoRequired)
		}
		mode = attendance.WorkModeRemote
	}

	report := s.geofenceService.Screen(ctx, req.UserID, sample)
	status, lateMinutes := checkInStatus(schedule, now)

	photoURL, err := s.resolvePhoto(ctx, req.UserID, schedule.Date, req.PhotoURL, req.File, req.FileHeader, "check-in")
	if err != nil {
		return attendance.SessionResponse{}, err
	}

	session, err := s.SessionRepository.Create(ctx, attendance.Session{
		UserID:          req.UserID,
		Department:      req.Department,
		Date:            schedule.Date,
		CheckInTime:     &now,
		CheckInLocation: locationFrom(sample, validation),
		Status:          status,
		WorkMode:        mode,
		LateMinutes:     lateMinutes,
		PhotoURLIn:      photoURL,
		AnomalyRisk:     report.RiskLevel,
		AnomalyReasons:  report.Reasons,
	})
	if err != nil {
		if errors.Is(err, attendance.ErrAlreadyCheckedIn) {
			return attendance.SessionResponse{}, err
		}
		return attendance.SessionResponse{}, fmt.Errorf("failed to create attendance session: %w", err)
	}

	slog.Info("User checked in",
		"user_id", session.UserID,
		"session_id", session.ID,
		"department", session.Department,
		"status", session.Status,
		"work_mode", session.WorkMode,
		"anomaly_risk", session.AnomalyRisk,
	)
	s.afterWrite(session, "attendance.checked_in")

	resp := attendance.NewSessionResponse(session)
	resp.Validation = &validation
	return resp, nil
}

// CheckOut implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) CheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.SessionResponse{}, err
	}

	unlock := s.locks.Lock(req.UserID)
	defer unlock()

	now := s.clock.Now().UTC()

	policy, err := s.policy(ctx, req.Department)
	if err != nil {
		return attendance.SessionResponse{}, err
	}

	session, err := s.openSession(ctx, req.UserID, policy.LocalDate(now), now)
	if err != nil {
		return attendance.SessionResponse{}, err
	}
	schedule := policy.ScheduleFor(*session.CheckInTime)

	sample := req.Location.ToSample(now)
	validation, err := s.geofenceService.ValidateLocation(ctx, sample)
	if err != nil {
		return attendance.SessionResponse{}, err
	}
	if !validation.IsValid && !policy.AllowRemoteWork && !policy.AllowFieldWork {
		return attendance.SessionResponse{}, &geofence.LocationRejectedError{Result: validation}
	}

	if now.Before(schedule.MinimumCheckOut) && !policy.AllowEarlyCheckOut && !req.HasReason() {
		return attendance.SessionResponse{}, fmt.Errorf("%w before %s",
			attendance.ErrEarlyCheckoutReasonRequired, schedule.MinimumCheckOut.Format("15:04"))
	}

	overtime := overtimeMinutes(policy, schedule, now)

	relocated := false
	if session.CheckInLocation != nil {
		from := geo.Point{Latitude: session.CheckInLocation.Latitude, Longitude: session.CheckInLocation.Longitude}
		relocated = geo.DistanceMeters(from, sample.Point()) > s.relocationMeters
	}

	hasPhoto := req.PhotoURL != nil || req.File != nil
	if !hasPhoto {
		switch {
		case !validation.IsValid || relocated:
			return attendance.SessionResponse{}, fmt.Errorf("%w: checking out away from your check-in location requires a photo", attendance.ErrPhotoRequired)
		case policy.AllowFieldWork:
			return attendance.SessionResponse{}, fmt.Errorf("%w: field staff must attach a photo at check-out", attendance.ErrPhotoRequired)
		case overtime > 0:
			return attendance.SessionResponse{}, fmt.Errorf("%w: checking out after hours requires a photo", attendance.ErrPhotoRequired)
		}
	}

	report := s.geofenceService.Screen(ctx, req.UserID, sample)

	photoURL, err := s.resolvePhoto(ctx, req.UserID, session.Date, req.PhotoURL, req.File, req.FileHeader, "check-out")
	if err != nil {
		return attendance.SessionResponse{}, err
	}

	worked := wholeMinutes(now.Sub(*session.CheckInTime))
	session.CheckOutTime = &now
	session.CheckOutLocation = locationFrom(sample, validation)
	session.OvertimeMinutes = overtime
	session.WorkMinutes = &worked
	session.Status = closedStatus(policy, session.Status, worked)
	session.PhotoURLOut = photoURL
	if req.HasReason() {
		session.Reason = req.Reason
	}
	if !validation.IsValid && policy.AllowFieldWork && session.WorkMode == attendance.WorkModeOffice {
		session.WorkMode = attendance.WorkModeField
	}
	session.AnomalyRisk = session.AnomalyRisk.Escalate(report.RiskLevel)
	session.AnomalyReasons = append(session.AnomalyReasons, report.Reasons...)

	closed, err := s.SessionRepository.Close(ctx, session)
	if err != nil {
		return attendance.SessionResponse{}, fmt.Errorf("failed to close attendance session: %w", err)
	}
	if !closed {
		return attendance.SessionResponse{}, attendance.ErrAlreadyCheckedOut
	}

	slog.Info("User checked out",
		"user_id", session.UserID,
		"session_id", session.ID,
		"department", session.Department,
		"overtime_minutes", session.OvertimeMinutes,
		"work_minutes", worked,
		"anomaly_risk", session.AnomalyRisk,
	)
	s.afterWrite(session, "attendance.checked_out")

	resp := attendance.NewSessionResponse(session)
	resp.Validation = &validation
	return resp, nil
}

// EnableOvertime implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) EnableOvertime(ctx context.Context, req attendance.EnableOvertimeRequest) (attendance.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.SessionResponse{}, err
	}

	unlock := s.locks.Lock(req.UserID)
	defer unlock()

	policy, err := s.policy(ctx, req.Department)
	if err != nil {
		return attendance.SessionResponse{}, err
	}

	now := s.clock.Now().UTC()
	session, err := s.openSession(ctx, req.UserID, policy.LocalDate(now), now)
	if err != nil {
		return attendance.SessionResponse{}, err
	}
	if session.OvertimeEnabled {
		return attendance.NewSessionResponse(session), nil
	}

	session.OvertimeEnabled = true
	if err := s.SessionRepository.Update(ctx, session); err != nil {
		return attendance.SessionResponse{}, fmt.Errorf("failed to enable overtime: %w", err)
	}

	slog.Info("Overtime mode enabled", "user_id", session.UserID, "session_id", session.ID)
	s.afterWrite(session, "attendance.overtime_enabled")

	return attendance.NewSessionResponse(session), nil
}

// GetToday implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetToday(ctx context.Context, userID, departmentName string) (*attendance.SessionResponse, error) {
	policy, err := s.policy(ctx, departmentName)
	if err != nil {
		return nil, err
	}
	today := policy.LocalDate(s.clock.Now())

	session, err := cache.GetOrCompute(ctx, s.cache, cache.KeyUserToday(userID, today.Format("2006-01-02")), cache.TTLUserToday,
		func(ctx context.Context) (*attendance.Session, error) {
			return s.SessionRepository.GetByUserAndDate(ctx, userID, today)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to get today's attendance: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	resp := attendance.NewSessionResponse(*session)
	return &resp, nil
}

// GetMyAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetMyAttendance(ctx context.Context, filter attendance.MyAttendanceFilter) ([]attendance.SessionResponse, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	to := s.clock.Now().UTC()
	if filter.EndDate != nil && *filter.EndDate != "" {
		to, _ = time.Parse("2006-01-02", *filter.EndDate)
	}
	from := to.AddDate(0, 0, -30)
	if filter.StartDate != nil && *filter.StartDate != "" {
		from, _ = time.Parse("2006-01-02", *filter.StartDate)
	}

	sessions, err := s.SessionRepository.ListByUser(ctx, filter.UserID, from, to, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return toResponses(sessions), nil
}

// ListDepartment implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListDepartment(ctx context.Context, filter attendance.DepartmentFilter) ([]attendance.SessionResponse, error) {
	sessions, err := s.departmentSessions(ctx, filter)
	if err != nil {
		return nil, err
	}
	return toResponses(sessions), nil
}

// DepartmentStats implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) DepartmentStats(ctx context.Context, filter attendance.DepartmentFilter) (attendance.DepartmentStats, error) {
	if err := filter.Validate(); err != nil {
		return attendance.DepartmentStats{}, err
	}
	date, err := s.filterDate(ctx, filter)
	if err != nil {
		return attendance.DepartmentStats{}, err
	}
	dateStr := date.Format("2006-01-02")

	return cache.GetOrCompute(ctx, s.cache, cache.KeyDepartmentStats(filter.Department, dateStr), cache.TTLDepartmentStat,
		func(ctx context.Context) (attendance.DepartmentStats, error) {
			sessions, err := s.SessionRepository.ListByDepartmentAndDate(ctx, filter.Department, date)
			if err != nil {
				return attendance.DepartmentStats{}, fmt.Errorf("failed to list department attendance: %w", err)
			}
			return summarize(filter.Department, dateStr, sessions), nil
		})
}

// LiveRoster implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) LiveRoster(ctx context.Context, departmentName string) ([]attendance.RosterEntry, error) {
	policy, err := s.policy(ctx, departmentName)
	if err != nil {
		return nil, err
	}
	today := policy.LocalDate(s.clock.Now())

	return cache.GetOrCompute(ctx, s.cache, cache.KeyLiveRoster(departmentName), cache.TTLLiveRoster,
		func(ctx context.Context) ([]attendance.RosterEntry, error) {
			sessions, err := s.SessionRepository.ListByDepartmentAndDate(ctx, departmentName, today)
			if err != nil {
				return nil, fmt.Errorf("failed to list department attendance: %w", err)
			}
			roster := make([]attendance.RosterEntry, 0, len(sessions))
			for _, session := range sessions {
				roster = append(roster, attendance.NewRosterEntry(session))
			}
			return roster, nil
		})
}

// CorrectSession implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) CorrectSession(ctx context.Context, req attendance.CorrectSessionRequest) (attendance.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.SessionResponse{}, err
	}

	session, err := s.SessionRepository.GetByID(ctx, req.ID)
	if err != nil {
		return attendance.SessionResponse{}, err
	}

	unlock := s.locks.Lock(session.UserID)
	defer unlock()

	// re-read under the user's lock
	session, err = s.SessionRepository.GetByID(ctx, req.ID)
	if err != nil {
		return attendance.SessionResponse{}, err
	}
	before := attendance.NewSessionResponse(session)

	if req.CheckInTime != nil {
		t, _ := time.Parse(time.RFC3339, *req.CheckInTime)
		t = t.UTC()
		session.CheckInTime = &t
	}
	if req.CheckOutTime != nil {
		t, _ := time.Parse(time.RFC3339, *req.CheckOutTime)
		t = t.UTC()
		session.CheckOutTime = &t
	}
	if session.CheckInTime != nil && session.CheckOutTime != nil {
		if !session.CheckOutTime.After(*session.CheckInTime) {
			return attendance.SessionResponse{}, fmt.Errorf("%w: check-out must be after check-in", attendance.ErrInvalidCorrection)
		}
		worked := wholeMinutes(session.CheckOutTime.Sub(*session.CheckInTime))
		session.WorkMinutes = &worked
	}
	if req.Status != nil {
		session.Status = attendance.Status(*req.Status)
	}
	if req.LateMinutes != nil {
		session.LateMinutes = *req.LateMinutes
	}
	if req.OvertimeMinutes != nil {
		session.OvertimeMinutes = *req.OvertimeMinutes
	}
	if req.Reason != nil {
		session.Reason = req.Reason
	}

	now := s.clock.Now().UTC()
	session.CorrectedBy = &req.CorrectedBy
	session.CorrectedAt = &now

	if err := s.SessionRepository.Update(ctx, session); err != nil {
		return attendance.SessionResponse{}, fmt.Errorf("failed to update attendance session: %w", err)
	}

	slog.Info("Attendance session corrected",
		"session_id", session.ID,
		"user_id", session.UserID,
		"department", session.Department,
		"corrected_by", req.CorrectedBy,
		"before", before,
		"after", attendance.NewSessionResponse(session),
	)
	s.afterWrite(session, "attendance.corrected")

	return attendance.NewSessionResponse(session), nil
}

// openSession returns the user's open session, or the error that explains
// why there is none.
func (s *AttendanceServiceImpl) openSession(ctx context.Context, userID string, today, now time.Time) (attendance.Session, error) {
	session, err := s.SessionRepository.GetOpenSession(ctx, userID)
	switch {
	case err == nil:
		expired, err := s.closeIfExpired(ctx, session, now)
		if err != nil {
			return attendance.Session{}, err
		}
		if !expired {
			return session, nil
		}
	case !errors.Is(err, attendance.ErrNotCheckedIn):
		return attendance.Session{}, fmt.Errorf("failed to get open session: %w", err)
	}

	existing, err := s.SessionRepository.GetByUserAndDate(ctx, userID, today)
	if err != nil {
		return attendance.Session{}, fmt.Errorf("failed to check today's attendance: %w", err)
	}
	if existing != nil && existing.State() == attendance.StateCheckedOut {
		return attendance.Session{}, attendance.ErrAlreadyCheckedOut
	}
	return attendance.Session{}, attendance.ErrNotCheckedIn
}

// closeStaleSession auto-closes a session left open on an earlier day so
// the user never holds two open sessions.
func (s *AttendanceServiceImpl) closeStaleSession(ctx context.Context, userID string, today time.Time) error {
	open, err := s.SessionRepository.GetOpenSession(ctx, userID)
	if errors.Is(err, attendance.ErrNotCheckedIn) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get open session: %w", err)
	}
	if !open.Date.Before(today) {
		return nil
	}

	policy, err := s.policy(ctx, open.Department)
	if err != nil {
		return err
	}
	if _, err := s.autoClose(ctx, policy, open); err != nil {
		return fmt.Errorf("failed to close previous session: %w", err)
	}
	return nil
}

// closeIfExpired auto-closes session when its auto checkout cutoff has
// passed but the sweep has not reached it yet. It reports whether the session
// is no longer open.
func (s *AttendanceServiceImpl) closeIfExpired(ctx context.Context, session attendance.Session, now time.Time) (bool, error) {
	if session.CheckInTime == nil {
		return false, nil
	}
	policy, err := s.policy(ctx, session.Department)
	if err != nil {
		return false, err
	}
	if now.Before(autoCheckoutCutoff(policy, session)) {
		return false, nil
	}
	if _, err := s.autoClose(ctx, policy, session); err != nil {
		return false, fmt.Errorf("failed to close expired session: %w", err)
	}
	return true, nil
}

// resolvePhoto stores an uploaded proof photo and returns its path. A URL
// supplied by the caller is used as is.
func (s *AttendanceServiceImpl) resolvePhoto(
	ctx context.Context,
	userID string,
	date time.Time,
	url *string,
	f multipart.File,
	header *multipart.FileHeader,
	kind string,
) (*string, error) {
	if url != nil || f == nil {
		return url, nil
	}

	filename := "photo.jpg"
	if header != nil {
		filename = header.Filename
	}
	path, err := s.fileService.UploadAttendanceProof(ctx, userID, date, f, filename, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to upload attendance proof: %w", err)
	}
	return &path, nil
}

// afterWrite drops cached reads touched by the session and notifies roster
// subscribers.
func (s *AttendanceServiceImpl) afterWrite(session attendance.Session, event string) {
	s.cache.InvalidateUser(session.UserID)
	s.cache.InvalidateDepartment(session.Department)

	if s.hub != nil {
		s.hub.Publish(sse.DepartmentTopic(session.Department), sse.Event{
			Topic: sse.DepartmentTopic(session.Department),
			Name:  event,
			Data:  attendance.NewRosterEntry(session),
		})
	}
}

func (s *AttendanceServiceImpl) filterDate(ctx context.Context, filter attendance.DepartmentFilter) (time.Time, error) {
	if filter.Date != nil && *filter.Date != "" {
		d, _ := time.Parse("2006-01-02", *filter.Date)
		return d, nil
	}
	policy, err := s.policy(ctx, filter.Department)
	if err != nil {
		return time.Time{}, err
	}
	return policy.LocalDate(s.clock.Now()), nil
}

func (s *AttendanceServiceImpl) departmentSessions(ctx context.Context, filter attendance.DepartmentFilter) ([]attendance.Session, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	date, err := s.filterDate(ctx, filter)
	if err != nil {
		return nil, err
	}

	return cache.GetOrCompute(ctx, s.cache, cache.KeyAttendanceList(filter.Department, date.Format("2006-01-02")), cache.TTLAttendanceList,
		func(ctx context.Context) ([]attendance.Session, error) {
			sessions, err := s.SessionRepository.ListByDepartmentAndDate(ctx, filter.Department, date)
			if err != nil {
				return nil, fmt.Errorf("failed to list department attendance: %w", err)
			}
			return sessions, nil
		})
}

func locationFrom(sample geofence.LocationSample, validation geofence.ValidationResult) *attendance.Location {
	return &attendance.Location{
		Latitude:       sample.Latitude,
		Longitude:      sample.Longitude,
		AccuracyMeters: sample.AccuracyMeters,
		OfficeID:       validation.OfficeID,
		DistanceMeters: validation.DistanceMeters,
	}
}

func toResponses(sessions []attendance.Session) []attendance.SessionResponse {
	out := make([]attendance.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, attendance.NewSessionResponse(session))
	}
	return out
}

func summarize(departmentName, date string, sessions []attendance.Session) attendance.DepartmentStats {
	stats := attendance.DepartmentStats{
		Department: departmentName,
		Date:       date,
		Total:      len(sessions),
	}
	for _, session := range sessions {
		switch session.Status {
		case attendance.StatusPresent:
			stats.Present++
		case attendance.StatusLate:
			stats.Late++
		case attendance.StatusHalfDay:
			stats.HalfDay++
		}
		switch session.State() {
		case attendance.StateCheckedIn:
			stats.CheckedIn++
		case attendance.StateCheckedOut:
			stats.CheckedOut++
		}
		switch session.WorkMode {
		case attendance.WorkModeRemote:
			stats.Remote++
		case attendance.WorkModeField:
			stats.Field++
		}
		if session.AutoClosed {
			stats.AutoClosed++
		}
		if session.AnomalyRisk != "" && session.AnomalyRisk != geofence.RiskLow {
			stats.Flagged++
		}
		stats.TotalOvertimeMinutes += session.OvertimeMinutes
	}
	return stats
}
