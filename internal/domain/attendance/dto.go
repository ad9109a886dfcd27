package attendance

import (
	"mime/multipart"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/validator"
)

const maxPhotoSize = 10 << 20 // 10MB

// ========================================
// CHECK-IN / CHECK-OUT DTOs
// ========================================

// CheckInRequest carries the authenticated user, the device location and an
// optional proof photo.
type CheckInRequest struct {
	UserID     string                   `json:"-"`
	Department string                   `json:"-"`
	Location   geofence.LocationRequest `json:"location"`
	PhotoURL   *string                  `json:"-"`
	File       multipart.File           `json:"-"`
	FileHeader *multipart.FileHeader    `json:"-"`
}

func (r *CheckInRequest) Validate() error {
	var errs validator.ValidationErrors

	errs = append(errs, principalErrors(r.UserID, r.Department)...)
	errs = append(errs, locationErrors(&r.Location)...)
	errs = append(errs, photoErrors(r.FileHeader)...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type CheckOutRequest struct {
	UserID     string                   `json:"-"`
	Department string                   `json:"-"`
	Location   geofence.LocationRequest `json:"location"`
	Reason     *string                  `json:"reason,omitempty"`
	PhotoURL   *string                  `json:"-"`
	File       multipart.File           `json:"-"`
	FileHeader *multipart.FileHeader    `json:"-"`
}

func (r *CheckOutRequest) Validate() error {
	var errs validator.ValidationErrors

	errs = append(errs, principalErrors(r.UserID, r.Department)...)
	errs = append(errs, locationErrors(&r.Location)...)
	errs = append(errs, photoErrors(r.FileHeader)...)

	if r.Reason != nil && len(*r.Reason) > 500 {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason must not exceed 500 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// HasReason reports whether a non-blank reason was supplied.
func (r *CheckOutRequest) HasReason() bool {
	return r.Reason != nil && !validator.IsEmpty(*r.Reason)
}

type EnableOvertimeRequest struct {
	UserID     string `json:"-"`
	Department string `json:"-"`
}

func (r *EnableOvertimeRequest) Validate() error {
	errs := validator.ValidationErrors(principalErrors(r.UserID, r.Department))
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func principalErrors(userID, department string) []validator.ValidationError {
	var errs []validator.ValidationError
	if validator.IsEmpty(userID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "user_id is required",
		})
	}
	if validator.IsEmpty(department) {
		errs = append(errs, validator.ValidationError{
			Field:   "department",
			Message: "department is required",
		})
	}
	return errs
}

func locationErrors(loc *geofence.LocationRequest) []validator.ValidationError {
	return validator.Nested("location", loc.Validate())
}

func photoErrors(header *multipart.FileHeader) []validator.ValidationError {
	if header == nil {
		return nil
	}

	filename := header.Filename
	ext := ""
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext = strings.ToLower(filename[i:])
	}

	switch {
	case ext != ".jpg" && ext != ".jpeg" && ext != ".png":
		return []validator.ValidationError{{
			Field:   "photo",
			Message: "invalid file type: only jpg, jpeg, png allowed",
		}}
	case header.Size > maxPhotoSize:
		return []validator.ValidationError{{
			Field:   "photo",
			Message: "attendance proof photo size must not exceed 10MB",
		}}
	}
	return nil
}

// ========================================
// QUERY DTOs
// ========================================

type MyAttendanceFilter struct {
	UserID    string  `json:"-"`
	StartDate *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate   *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Limit     int     `json:"limit"`
}

func (f *MyAttendanceFilter) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(f.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "user_id is required",
		})
	}

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 31 // Default limit
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	var start, end time.Time
	if f.StartDate != nil && *f.StartDate != "" {
		d, valid := validator.IsValidDate(*f.StartDate)
		if !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be in YYYY-MM-DD format",
			})
		}
		start = d
	}

	if f.EndDate != nil && *f.EndDate != "" {
		d, valid := validator.IsValidDate(*f.EndDate)
		if !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be in YYYY-MM-DD format",
			})
		}
		end = d
	}

	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type DepartmentFilter struct {
	Department string  `json:"department"`
	Date       *string `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
}

func (f *DepartmentFilter) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(f.Department) {
		errs = append(errs, validator.ValidationError{
			Field:   "department",
			Message: "department is required",
		})
	}

	if f.Date != nil && *f.Date != "" {
		if _, valid := validator.IsValidDate(*f.Date); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "date",
				Message: "date must be in YYYY-MM-DD format",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ========================================
// ADMINISTRATIVE CORRECTION
// ========================================

// CorrectSessionRequest overrides fields of a session out of band. Only the
// fields that are set are changed.
type CorrectSessionRequest struct {
	ID              string  `json:"-"`
	CorrectedBy     string  `json:"-"`
	CheckInTime     *string `json:"check_in_time,omitempty"`  // RFC3339
	CheckOutTime    *string `json:"check_out_time,omitempty"` // RFC3339
	Status          *string `json:"status,omitempty"`
	LateMinutes     *int    `json:"late_minutes,omitempty"`
	OvertimeMinutes *int    `json:"overtime_minutes,omitempty"`
	Reason          *string `json:"reason,omitempty"`
}

func (r *CorrectSessionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "id is required",
		})
	}

	if validator.IsEmpty(r.CorrectedBy) {
		errs = append(errs, validator.ValidationError{
			Field:   "corrected_by",
			Message: "corrected_by is required",
		})
	}

	var in, out time.Time
	if r.CheckInTime != nil {
		t, valid := validator.IsValidDateTime(*r.CheckInTime)
		if !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "check_in_time",
				Message: "check_in_time must be in RFC3339 format",
			})
		}
		in = t
	}

	if r.CheckOutTime != nil {
		t, valid := validator.IsValidDateTime(*r.CheckOutTime)
		if !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "check_out_time",
				Message: "check_out_time must be in RFC3339 format",
			})
		}
		out = t
	}

	if !in.IsZero() && !out.IsZero() && !out.After(in) {
		errs = append(errs, validator.ValidationError{
			Field:   "check_out_time",
			Message: "check_out_time must be after check_in_time",
		})
	}

	if r.Status != nil && !validator.IsInSlice(strings.ToLower(*r.Status), validStatuses) {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of: " + strings.Join(validStatuses, ", "),
		})
	}

	if r.LateMinutes != nil && *r.LateMinutes < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "late_minutes",
			Message: "late_minutes must not be negative",
		})
	}

	if r.OvertimeMinutes != nil && *r.OvertimeMinutes < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "overtime_minutes",
			Message: "overtime_minutes must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ========================================
// RESPONSES
// ========================================

type LocationResponse struct {
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	AccuracyMeters float64  `json:"accuracy_meters"`
	OfficeID       *string  `json:"office_id,omitempty"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
}

type SessionResponse struct {
	ID               string                     `json:"id"`
	UserID           string                     `json:"user_id"`
	Department       string                     `json:"department"`
	Date             string                     `json:"date"`
	State            State                      `json:"state"`
	CheckInTime      *string                    `json:"check_in_time,omitempty"`
	CheckOutTime     *string                    `json:"check_out_time,omitempty"`
	CheckInLocation  *LocationResponse          `json:"check_in_location,omitempty"`
	CheckOutLocation *LocationResponse          `json:"check_out_location,omitempty"`
	Status           Status                     `json:"status"`
	WorkMode         WorkMode                   `json:"work_mode"`
	LateMinutes      int                        `json:"late_minutes"`
	OvertimeMinutes  int                        `json:"overtime_minutes"`
	WorkMinutes      *int                       `json:"work_minutes,omitempty"`
	OvertimeEnabled  bool                       `json:"overtime_enabled"`
	PhotoURLIn       *string                    `json:"photo_url_in,omitempty"`
	PhotoURLOut      *string                    `json:"photo_url_out,omitempty"`
	Reason           *string                    `json:"reason,omitempty"`
	AutoClosed       bool                       `json:"auto_closed"`
	AnomalyRisk      geofence.RiskLevel         `json:"anomaly_risk,omitempty"`
	AnomalyReasons   []string                   `json:"anomaly_reasons,omitempty"`
	Validation       *geofence.ValidationResult `json:"validation,omitempty"`
}

func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func locationResponse(l *Location) *LocationResponse {
	if l == nil {
		return nil
	}
	return &LocationResponse{
		Latitude:       l.Latitude,
		Longitude:      l.Longitude,
		AccuracyMeters: l.AccuracyMeters,
		OfficeID:       l.OfficeID,
		DistanceMeters: l.DistanceMeters,
	}
}

func NewSessionResponse(s Session) SessionResponse {
	return SessionResponse{
		ID:               s.ID,
		UserID:           s.UserID,
		Department:       s.Department,
		Date:             s.Date.Format("2006-01-02"),
		State:            s.State(),
		CheckInTime:      timePtrToString(s.CheckInTime),
		CheckOutTime:     timePtrToString(s.CheckOutTime),
		CheckInLocation:  locationResponse(s.CheckInLocation),
		CheckOutLocation: locationResponse(s.CheckOutLocation),
		Status:           s.Status,
		WorkMode:         s.WorkMode,
		LateMinutes:      s.LateMinutes,
		OvertimeMinutes:  s.OvertimeMinutes,
		WorkMinutes:      s.WorkMinutes,
		OvertimeEnabled:  s.OvertimeEnabled,
		PhotoURLIn:       s.PhotoURLIn,
		PhotoURLOut:      s.PhotoURLOut,
		Reason:           s.Reason,
		AutoClosed:       s.AutoClosed,
		AnomalyRisk:      s.AnomalyRisk,
		AnomalyReasons:   s.AnomalyReasons,
	}
}

func NewRosterEntry(s Session) RosterEntry {
	return RosterEntry{
		UserID:       s.UserID,
		SessionID:    s.ID,
		State:        s.State(),
		Status:       s.Status,
		WorkMode:     s.WorkMode,
		CheckInTime:  timePtrToString(s.CheckInTime),
		CheckOutTime: timePtrToString(s.CheckOutTime),
		Flagged:      s.AnomalyRisk != "" && s.AnomalyRisk != geofence.RiskLow,
	}
}

type SSETokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}
