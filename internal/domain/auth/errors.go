package auth

import "errors"

var (
	ErrInvalidToken          = errors.New("invalid or expired token")
	ErrTokenExpired          = errors.New("token has expired")
	ErrDepartmentRequired    = errors.New("token carries no department")
	ErrManagerAccessRequired = errors.New("manager access required")
	ErrAdminAccessRequired   = errors.New("admin access required")
	ErrDepartmentForbidden   = errors.New("not allowed to view this department")
)
