package attendance

import (
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusLeave   Status = "leave"
	StatusHoliday Status = "holiday"
	StatusHalfDay Status = "half_day"
)

var validStatuses = []string{
	string(StatusPresent),
	string(StatusAbsent),
	string(StatusLate),
	string(StatusLeave),
	string(StatusHoliday),
	string(StatusHalfDay),
}

type WorkMode string

const (
	WorkModeOffice WorkMode = "office"
	WorkModeRemote WorkMode = "remote"
	WorkModeField  WorkMode = "field"
)

// State is the lifecycle position of a user's day.
type State string

const (
	StateNoSession  State = "no_session"
	StateCheckedIn  State = "checked_in"
	StateCheckedOut State = "checked_out"
)

// Location is where a check-in or check-out was recorded.
type Location struct {
	Latitude       float64
	Longitude      float64
	AccuracyMeters float64
	OfficeID       *string
	DistanceMeters *float64
}

// Session is the single attendance record of a user for one department-local day.
type Session struct {
	ID               string
	UserID           string
	Department       string
	Date             time.Time
	CheckInTime      *time.Time
	CheckOutTime     *time.Time
	CheckInLocation  *Location
	CheckOutLocation *Location
	Status           Status
	WorkMode         WorkMode
	LateMinutes      int
	OvertimeMinutes  int
	WorkMinutes      *int
	OvertimeEnabled  bool
	PhotoURLIn       *string
	PhotoURLOut      *string
	Reason           *string
	AutoClosed       bool
	AnomalyRisk      geofence.RiskLevel
	AnomalyReasons   []string
	CorrectedBy      *string
	CorrectedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (s *Session) State() State {
	switch {
	case s == nil || s.CheckInTime == nil:
		return StateNoSession
	case s.CheckOutTime == nil:
		return StateCheckedIn
	default:
		return StateCheckedOut
	}
}

// DepartmentStats summarises one department-local day.
type DepartmentStats struct {
	Department           string `json:"department"`
	Date                 string `json:"date"`
	Total                int    `json:"total"`
	Present              int    `json:"present"`
	Late                 int    `json:"late"`
	HalfDay              int    `json:"half_day"`
	CheckedIn            int    `json:"checked_in"`
	CheckedOut           int    `json:"checked_out"`
	AutoClosed           int    `json:"auto_closed"`
	Remote               int    `json:"remote"`
	Field                int    `json:"field"`
	Flagged              int    `json:"flagged"`
	TotalOvertimeMinutes int    `json:"total_overtime_minutes"`
}

type RosterEntry struct {
	UserID       string   `json:"user_id"`
	SessionID    string   `json:"session_id"`
	State        State    `json:"state"`
	Status       Status   `json:"status"`
	WorkMode     WorkMode `json:"work_mode"`
	CheckInTime  *string  `json:"check_in_time,omitempty"`
	CheckOutTime *string  `json:"check_out_time,omitempty"`
	Flagged      bool     `json:"flagged"`
}

// AutoCheckoutSummary reports one sweep over open sessions.
type AutoCheckoutSummary struct {
	Scanned int `json:"scanned"`
	Closed  int `json:"closed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
