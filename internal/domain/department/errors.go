package department

import "errors"

var (
	ErrPolicyNotFound = errors.New("department policy not configured")
	ErrInvalidTime    = errors.New("time of day must be in HH:MM format")
	ErrInvalidPolicy  = errors.New("invalid department policy")
)
