package department

import (
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) TimeOfDay {
	t.Helper()
	tod, err := ParseTimeOfDay(s)
	require.NoError(t, err)
	return tod
}

func validPolicy(t *testing.T) Policy {
	return Policy{
		Department:               "engineering",
		Location:                 time.UTC,
		ExpectedCheckIn:          mustTime(t, "09:00"),
		ExpectedCheckOut:         mustTime(t, "17:00"),
		MinimumCheckOut:          mustTime(t, "16:00"),
		LateGraceMinutes:         10,
		OvertimeThresholdMinutes: 30,
		CheckInWindowMinutes:     DefaultCheckInWindowMinutes,
		AutoCheckoutAfterMinutes: DefaultAutoCheckoutAfterMinutes,
		OvertimeCutoff:           mustTime(t, DefaultOvertimeCutoff),
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:00", TimeOfDay{9, 0}, false},
		{"23:59", TimeOfDay{23, 59}, false},
		{"09:00:00", TimeOfDay{}, true},
		{"24:00", TimeOfDay{}, true},
		{"noon", TimeOfDay{}, true},
	}

	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.input)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidTime, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.input, got.String())
	}
}

func TestPolicyValidate(t *testing.T) {
	p := validPolicy(t)
	require.NoError(t, p.Validate())

	p.ExpectedCheckOut = mustTime(t, "08:00")
	p.LateGraceMinutes = -1
	err := p.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := verrs.ToMap()
	assert.Contains(t, fields, "expected_check_out")
	assert.Contains(t, fields, "late_grace_minutes")
}

func TestPolicyValidate_OvertimeCutoff(t *testing.T) {
	tests := []struct {
		name     string
		checkIn  string
		checkOut string
		minCheck string
		autoMins int
		cutoff   string
		wantErr  bool
	}{
		{"day shift with default cutoff", "09:00", "17:00", "16:00", 120, "23:59", false},
		{"cutoff equal to auto checkout", "09:00", "17:00", "16:00", 120, "19:00", false},
		{"cutoff before auto checkout", "09:00", "17:00", "16:00", 180, "19:00", true},
		{"evening shift auto checkout past midnight", "14:00", "22:30", "21:00", 120, "23:59", true},
		{"cutoff before expected checkout", "09:00", "17:00", "16:00", 0, "16:30", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPolicy(t)
			p.ExpectedCheckIn = mustTime(t, tt.checkIn)
			p.ExpectedCheckOut = mustTime(t, tt.checkOut)
			p.MinimumCheckOut = mustTime(t, tt.minCheck)
			p.AutoCheckoutAfterMinutes = tt.autoMins
			p.OvertimeCutoff = mustTime(t, tt.cutoff)

			err := p.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidPolicy)
			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Contains(t, verrs.ToMap(), "overtime_cutoff")
		})
	}
}

func TestScheduleFor(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	p := validPolicy(t)
	p.Location = jakarta

	// 23:30 UTC on March 9 is already March 10 in Jakarta
	s := p.ScheduleFor(time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC))

	assert.Equal(t, "2025-03-10", s.Date.Format("2006-01-02"))
	assert.Equal(t, time.Date(2025, 3, 10, 8, 0, 0, 0, jakarta), s.EarliestCheckIn)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 10, 0, 0, jakarta), s.LateAfter)
	assert.Equal(t, time.Date(2025, 3, 10, 17, 0, 0, 0, jakarta), s.ExpectedCheckOut)
	assert.Equal(t, time.Date(2025, 3, 10, 19, 0, 0, 0, jakarta), s.AutoCheckoutAt)
	assert.Equal(t, time.Date(2025, 3, 10, 23, 59, 0, 0, jakarta), s.OvertimeCutoff)
	assert.Equal(t, 480, p.ScheduledMinutes())
}
