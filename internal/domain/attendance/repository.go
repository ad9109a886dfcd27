package attendance

import (
	"context"
	"time"
)

// SessionRepository persists attendance sessions. The store enforces at most
// one session per (user, date).
type SessionRepository interface {
	// Create returns ErrAlreadyCheckedIn when the user already has a session on that date.
	Create(ctx context.Context, session Session) (Session, error)

	GetByID(ctx context.Context, id string) (Session, error)

	// GetByUserAndDate returns nil when the user has no session on date.
	GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*Session, error)

	// GetOpenSession returns ErrNotCheckedIn when no session is open.
	GetOpenSession(ctx context.Context, userID string) (Session, error)

	// Close writes the checkout fields only while the session is still open.
	// It reports false when the session had already been closed.
	Close(ctx context.Context, session Session) (bool, error)

	// Update overwrites every mutable field. Used for corrections and the overtime flag.
	Update(ctx context.Context, session Session) error

	ListByDepartmentAndDate(ctx context.Context, department string, date time.Time) ([]Session, error)
	ListByUser(ctx context.Context, userID string, from, to time.Time, limit int) ([]Session, error)

	// ListOpen returns every session without a checkout, oldest first.
	ListOpen(ctx context.Context) ([]Session, error)
}
