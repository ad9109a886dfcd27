package geofence

import "context"

type OfficeRepository interface {
	// ListActive returns offices with is_active = true.
	ListActive(ctx context.Context) ([]OfficeLocation, error)
	GetByID(ctx context.Context, id string) (OfficeLocation, error)
}
