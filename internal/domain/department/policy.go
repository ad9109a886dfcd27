package department

import (
	"fmt"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/validator"
)

// Validate checks a policy after defaults were applied.
func (p *Policy) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(p.Department) {
		errs = append(errs, validator.ValidationError{
			Field:   "department",
			Message: "department is required",
		})
	}

	if p.ExpectedCheckOut.Minutes() <= p.ExpectedCheckIn.Minutes() {
		errs = append(errs, validator.ValidationError{
			Field:   "expected_check_out",
			Message: "expected_check_out must be after expected_check_in",
		})
	}

	if p.MinimumCheckOut.Minutes() < p.ExpectedCheckIn.Minutes() || p.MinimumCheckOut.Minutes() > p.ExpectedCheckOut.Minutes() {
		errs = append(errs, validator.ValidationError{
			Field:   "minimum_check_out",
			Message: "minimum_check_out must be between expected_check_in and expected_check_out",
		})
	}

	if p.OvertimeCutoff.Minutes() <= p.ExpectedCheckOut.Minutes() {
		errs = append(errs, validator.ValidationError{
			Field:   "overtime_cutoff",
			Message: "overtime_cutoff must be after expected_check_out",
		})
	} else if p.OvertimeCutoff.Minutes() < p.ExpectedCheckOut.Minutes()+p.AutoCheckoutAfterMinutes {
		// overtime mode only ever defers the auto checkout
		errs = append(errs, validator.ValidationError{
			Field:   "overtime_cutoff",
			Message: "overtime_cutoff must not be before expected_check_out plus auto_checkout_after_minutes",
		})
	}

	minutes := []struct {
		field string
		value int
	}{
		{"late_grace_minutes", p.LateGraceMinutes},
		{"overtime_threshold_minutes", p.OvertimeThresholdMinutes},
		{"check_in_window_minutes", p.CheckInWindowMinutes},
		{"auto_checkout_after_minutes", p.AutoCheckoutAfterMinutes},
	}
	for _, m := range minutes {
		if m.value < 0 {
			errs = append(errs, validator.ValidationError{
				Field:   m.field,
				Message: m.field + " must not be negative",
			})
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w %q: %w", ErrInvalidPolicy, p.Department, errs)
	}

	return nil
}
