package department

import (
	"fmt"
	"time"
)

// Defaults applied when a policy leaves the field unset.
const (
	DefaultCheckInWindowMinutes     = 60
	DefaultAutoCheckoutAfterMinutes = 120
	DefaultOvertimeCutoff           = "23:59"
)

// TimeOfDay is a wall clock time in the department's timezone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// On returns the instant of t on the calendar day of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// Policy holds the attendance rules of one department. Policies are parsed
// and validated once when loaded.
type Policy struct {
	Department               string
	Location                 *time.Location
	ExpectedCheckIn          TimeOfDay
	ExpectedCheckOut         TimeOfDay
	MinimumCheckOut          TimeOfDay
	LateGraceMinutes         int
	OvertimeThresholdMinutes int
	CheckInWindowMinutes     int
	AutoCheckoutAfterMinutes int
	OvertimeCutoff           TimeOfDay
	AllowRemoteWork          bool
	AllowFieldWork           bool
	AllowEarlyCheckOut       bool
}

// Schedule is a policy resolved onto one working day.
type Schedule struct {
	Date             time.Time
	EarliestCheckIn  time.Time
	ExpectedCheckIn  time.Time
	LateAfter        time.Time
	ExpectedCheckOut time.Time
	MinimumCheckOut  time.Time
	AutoCheckoutAt   time.Time
	OvertimeCutoff   time.Time
}

// LocalDate returns the department's calendar day containing instant.
func (p Policy) LocalDate(instant time.Time) time.Time {
	local := instant.In(p.location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.location())
}

// ScheduleFor resolves the policy onto the department-local day containing instant.
func (p Policy) ScheduleFor(instant time.Time) Schedule {
	day := p.LocalDate(instant)
	checkIn := p.ExpectedCheckIn.On(day)
	checkOut := p.ExpectedCheckOut.On(day)

	return Schedule{
		Date:             day,
		EarliestCheckIn:  checkIn.Add(-time.Duration(p.CheckInWindowMinutes) * time.Minute),
		ExpectedCheckIn:  checkIn,
		LateAfter:        checkIn.Add(time.Duration(p.LateGraceMinutes) * time.Minute),
		ExpectedCheckOut: checkOut,
		MinimumCheckOut:  p.MinimumCheckOut.On(day),
		AutoCheckoutAt:   checkOut.Add(time.Duration(p.AutoCheckoutAfterMinutes) * time.Minute),
		OvertimeCutoff:   p.OvertimeCutoff.On(day),
	}
}

// ScheduledMinutes is the length of the working day.
func (p Policy) ScheduledMinutes() int {
	return p.ExpectedCheckOut.Minutes() - p.ExpectedCheckIn.Minutes()
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}
