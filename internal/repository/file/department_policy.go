package file

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/department"
	"gopkg.in/yaml.v3"
)

type policyDocument struct {
	Departments []policyEntry `yaml:"departments"`
}

type policyEntry struct {
	Department               string `yaml:"department"`
	Timezone                 string `yaml:"timezone"`
	ExpectedCheckIn          string `yaml:"expected_check_in"`
	ExpectedCheckOut         string `yaml:"expected_check_out"`
	MinimumCheckOut          string `yaml:"minimum_check_out"`
	LateGraceMinutes         int    `yaml:"late_grace_minutes"`
	OvertimeThresholdMinutes int    `yaml:"overtime_threshold_minutes"`
	CheckInWindowMinutes     *int   `yaml:"check_in_window_minutes"`
	AutoCheckoutAfterMinutes *int   `yaml:"auto_checkout_after_minutes"`
	OvertimeCutoff           string `yaml:"overtime_cutoff"`
	AllowRemoteWork          bool   `yaml:"allow_remote_work"`
	AllowFieldWork           bool   `yaml:"allow_field_work"`
	AllowEarlyCheckOut       bool   `yaml:"allow_early_check_out"`
}

type departmentPolicyRepositoryImpl struct {
	policies map[string]department.Policy
}

// LoadDepartmentPolicies reads and validates the policy file at path.
func LoadDepartmentPolicies(path string) (department.PolicyRepository, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read department policy file: %w", err)
	}
	return ParseDepartmentPolicies(raw)
}

// ParseDepartmentPolicies builds a repository from a YAML document. Every
// policy is validated here; a single invalid entry fails the whole load.
func ParseDepartmentPolicies(raw []byte) (department.PolicyRepository, error) {
	var doc policyDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse department policy file: %w", err)
	}

	policies := make(map[string]department.Policy, len(doc.Departments))
	for _, entry := range doc.Departments {
		if _, dup := policies[entry.Department]; dup {
			return nil, fmt.Errorf("%w: department %q is defined twice", department.ErrInvalidPolicy, entry.Department)
		}

		policy, err := entry.toPolicy()
		if err != nil {
			return nil, err
		}
		if err := policy.Validate(); err != nil {
			return nil, err
		}
		policies[policy.Department] = policy
	}

	return &departmentPolicyRepositoryImpl{policies: policies}, nil
}

func (e policyEntry) toPolicy() (department.Policy, error) {
	fail := func(field string, err error) (department.Policy, error) {
		return department.Policy{}, fmt.Errorf("%w %q: %s: %w", department.ErrInvalidPolicy, e.Department, field, err)
	}

	loc := time.UTC
	if e.Timezone != "" {
		l, err := time.LoadLocation(e.Timezone)
		if err != nil {
			return fail("timezone", err)
		}
		loc = l
	}

	checkIn, err := department.ParseTimeOfDay(e.ExpectedCheckIn)
	if err != nil {
		return fail("expected_check_in", err)
	}
	checkOut, err := department.ParseTimeOfDay(e.ExpectedCheckOut)
	if err != nil {
		return fail("expected_check_out", err)
	}

	minimum := checkOut
	if e.MinimumCheckOut != "" {
		if minimum, err = department.ParseTimeOfDay(e.MinimumCheckOut); err != nil {
			return fail("minimum_check_out", err)
		}
	}

	cutoffStr := e.OvertimeCutoff
	if cutoffStr == "" {
		cutoffStr = department.DefaultOvertimeCutoff
	}
	cutoff, err := department.ParseTimeOfDay(cutoffStr)
	if err != nil {
		return fail("overtime_cutoff", err)
	}

	window := department.DefaultCheckInWindowMinutes
	if e.CheckInWindowMinutes != nil {
		window = *e.CheckInWindowMinutes
	}
	autoAfter := department.DefaultAutoCheckoutAfterMinutes
	if e.AutoCheckoutAfterMinutes != nil {
		autoAfter = *e.AutoCheckoutAfterMinutes
	}

	return department.Policy{
		Department:               e.Department,
		Location:                 loc,
		ExpectedCheckIn:          checkIn,
		ExpectedCheckOut:         checkOut,
		MinimumCheckOut:          minimum,
		LateGraceMinutes:         e.LateGraceMinutes,
		OvertimeThresholdMinutes: e.OvertimeThresholdMinutes,
		CheckInWindowMinutes:     window,
		AutoCheckoutAfterMinutes: autoAfter,
		OvertimeCutoff:           cutoff,
		AllowRemoteWork:          e.AllowRemoteWork,
		AllowFieldWork:           e.AllowFieldWork,
		AllowEarlyCheckOut:       e.AllowEarlyCheckOut,
	}, nil
}

// Get implements department.PolicyRepository.
func (r *departmentPolicyRepositoryImpl) Get(ctx context.Context, name string) (department.Policy, error) {
	policy, ok := r.policies[name]
	if !ok {
		return department.Policy{}, department.ErrPolicyNotFound
	}
	return policy, nil
}

// List implements department.PolicyRepository.
func (r *departmentPolicyRepositoryImpl) List(ctx context.Context) ([]department.Policy, error) {
	policies := make([]department.Policy, 0, len(r.policies))
	for _, p := range r.policies {
		policies = append(policies, p)
	}
	sort.Slice(policies, func(i, j int) bool {
		return policies[i].Department < policies[j].Department
	})
	return policies, nil
}
