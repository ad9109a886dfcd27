package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const sessionColumns = `
	id, user_id, department, date, check_in_time, check_out_time,
	check_in_latitude, check_in_longitude, check_in_accuracy_meters, check_in_office_id, check_in_distance_meters,
	check_out_latitude, check_out_longitude, check_out_accuracy_meters, check_out_office_id, check_out_distance_meters,
	status, work_mode, late_minutes, overtime_minutes, work_minutes, overtime_enabled,
	photo_url_in, photo_url_out, reason, auto_closed, anomaly_risk, anomaly_reasons,
	corrected_by, corrected_at, created_at, updated_at`

const dateLayout = "2006-01-02"

type sessionRepository struct {
	db *database.DB
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// locationColumns holds the nullable columns of one recorded location.
type locationColumns struct {
	Latitude       *float64
	Longitude      *float64
	AccuracyMeters *float64
	OfficeID       *string
	DistanceMeters *float64
}

func (l *locationColumns) toLocation() *attendance.Location {
	if l.Latitude == nil || l.Longitude == nil {
		return nil
	}
	loc := &attendance.Location{
		Latitude:       *l.Latitude,
		Longitude:      *l.Longitude,
		OfficeID:       l.OfficeID,
		DistanceMeters: l.DistanceMeters,
	}
	if l.AccuracyMeters != nil {
		loc.AccuracyMeters = *l.AccuracyMeters
	}
	return loc
}

func locationArgs(l *attendance.Location) []interface{} {
	if l == nil {
		return []interface{}{nil, nil, nil, nil, nil}
	}
	return []interface{}{l.Latitude, l.Longitude, l.AccuracyMeters, l.OfficeID, l.DistanceMeters}
}

func scanSession(row rowScanner) (attendance.Session, error) {
	var (
		s           attendance.Session
		in, out     locationColumns
		anomalyRisk *string
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.Department, &s.Date, &s.CheckInTime, &s.CheckOutTime,
		&in.Latitude, &in.Longitude, &in.AccuracyMeters, &in.OfficeID, &in.DistanceMeters,
		&out.Latitude, &out.Longitude, &out.AccuracyMeters, &out.OfficeID, &out.DistanceMeters,
		&s.Status, &s.WorkMode, &s.LateMinutes, &s.OvertimeMinutes, &s.WorkMinutes, &s.OvertimeEnabled,
		&s.PhotoURLIn, &s.PhotoURLOut, &s.Reason, &s.AutoClosed, &anomalyRisk, &s.AnomalyReasons,
		&s.CorrectedBy, &s.CorrectedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return attendance.Session{}, err
	}
	s.CheckInLocation = in.toLocation()
	s.CheckOutLocation = out.toLocation()
	if anomalyRisk != nil {
		s.AnomalyRisk = geofence.RiskLevel(*anomalyRisk)
	}
	return s, nil
}

func (r *sessionRepository) query(ctx context.Context, sql string, args ...interface{}) ([]attendance.Session, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []attendance.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Create implements attendance.SessionRepository.
func (r *sessionRepository) Create(ctx context.Context, s attendance.Session) (attendance.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance_sessions (
			user_id, department, date, check_in_time,
			check_in_latitude, check_in_longitude, check_in_accuracy_meters, check_in_office_id, check_in_distance_meters,
			status, work_mode, late_minutes, photo_url_in, anomaly_risk, anomaly_reasons
		) VALUES (
			$1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		) RETURNING id, created_at, updated_at
	`

	args := []interface{}{s.UserID, s.Department, s.Date.Format(dateLayout), s.CheckInTime}
	args = append(args, locationArgs(s.CheckInLocation)...)
	args = append(args, s.Status, s.WorkMode, s.LateMinutes, s.PhotoURLIn, string(s.AnomalyRisk), s.AnomalyReasons)

	err := q.QueryRow(ctx, query, args...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return attendance.Session{}, attendance.ErrAlreadyCheckedIn
		}
		return attendance.Session{}, fmt.Errorf("failed to create attendance session: %w", err)
	}

	return s, nil
}

// GetByID implements attendance.SessionRepository.
func (r *sessionRepository) GetByID(ctx context.Context, id string) (attendance.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + sessionColumns + ` FROM attendance_sessions WHERE id = $1`

	s, err := scanSession(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Session{}, attendance.ErrSessionNotFound
		}
		return attendance.Session{}, fmt.Errorf("failed to get attendance session by ID: %w", err)
	}

	return s, nil
}

// GetByUserAndDate implements attendance.SessionRepository.
func (r *sessionRepository) GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*attendance.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + sessionColumns + `
		FROM attendance_sessions
		WHERE user_id = $1
		  AND date = $2::date
		LIMIT 1
	`

	s, err := scanSession(q.QueryRow(ctx, query, userID, date.Format(dateLayout)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance session by user and date: %w", err)
	}

	return &s, nil
}

// GetOpenSession implements attendance.SessionRepository.
func (r *sessionRepository) GetOpenSession(ctx context.Context, userID string) (attendance.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + sessionColumns + `
		FROM attendance_sessions
		WHERE user_id = $1
		  AND check_out_time IS NULL
		ORDER BY check_in_time DESC
		LIMIT 1
	`

	s, err := scanSession(q.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Session{}, attendance.ErrNotCheckedIn
		}
		return attendance.Session{}, fmt.Errorf("failed to get open session: %w", err)
	}

	return s, nil
}

// Close implements attendance.SessionRepository.
func (r *sessionRepository) Close(ctx context.Context, s attendance.Session) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance_sessions SET
			check_out_time = $2,
			check_out_latitude = $3, check_out_longitude = $4, check_out_accuracy_meters = $5,
			check_out_office_id = $6, check_out_distance_meters = $7,
			status = $8, work_mode = $9, overtime_minutes = $10, work_minutes = $11,
			photo_url_out = $12, reason = $13, auto_closed = $14,
			anomaly_risk = $15, anomaly_reasons = $16,
			updated_at = NOW()
		WHERE id = $1
		  AND check_out_time IS NULL
	`

	args := []interface{}{s.ID, s.CheckOutTime}
	args = append(args, locationArgs(s.CheckOutLocation)...)
	args = append(args,
		s.Status, s.WorkMode, s.OvertimeMinutes, s.WorkMinutes,
		s.PhotoURLOut, s.Reason, s.AutoClosed,
		string(s.AnomalyRisk), s.AnomalyReasons,
	)

	commandTag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to close attendance session: %w", err)
	}

	return commandTag.RowsAffected() == 1, nil
}

// Update implements attendance.SessionRepository.
func (r *sessionRepository) Update(ctx context.Context, s attendance.Session) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance_sessions SET
			check_in_time = $2, check_out_time = $3,
			status = $4, work_mode = $5, late_minutes = $6, overtime_minutes = $7, work_minutes = $8,
			overtime_enabled = $9, reason = $10,
			corrected_by = $11, corrected_at = $12,
			updated_at = NOW()
		WHERE id = $1
	`

	commandTag, err := q.Exec(ctx, query,
		s.ID, s.CheckInTime, s.CheckOutTime,
		s.Status, s.WorkMode, s.LateMinutes, s.OvertimeMinutes, s.WorkMinutes,
		s.OvertimeEnabled, s.Reason,
		s.CorrectedBy, s.CorrectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance session: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return attendance.ErrSessionNotFound
	}

	return nil
}

// ListByDepartmentAndDate implements attendance.SessionRepository.
func (r *sessionRepository) ListByDepartmentAndDate(ctx context.Context, department string, date time.Time) ([]attendance.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM attendance_sessions
		WHERE department = $1
		  AND date = $2::date
		ORDER BY check_in_time ASC
	`

	sessions, err := r.query(ctx, query, department, date.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list department attendance: %w", err)
	}
	return sessions, nil
}

// ListByUser implements attendance.SessionRepository.
func (r *sessionRepository) ListByUser(ctx context.Context, userID string, from, to time.Time, limit int) ([]attendance.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM attendance_sessions
		WHERE user_id = $1
		  AND date >= $2::date
		  AND date <= $3::date
		ORDER BY date DESC
		LIMIT $4
	`

	sessions, err := r.query(ctx, query, userID, from.Format(dateLayout), to.Format(dateLayout), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list user attendance: %w", err)
	}
	return sessions, nil
}

// ListOpen implements attendance.SessionRepository.
func (r *sessionRepository) ListOpen(ctx context.Context) ([]attendance.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM attendance_sessions
		WHERE check_out_time IS NULL
		ORDER BY check_in_time ASC
	`

	sessions, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list open sessions: %w", err)
	}
	return sessions, nil
}

func NewSessionRepository(db *database.DB) attendance.SessionRepository {
	return &sessionRepository{db: db}
}
