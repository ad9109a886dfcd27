package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type officeRepository struct {
	db *database.DB
}

// ListActive implements geofence.OfficeRepository.
func (o *officeRepository) ListActive(ctx context.Context) ([]geofence.OfficeLocation, error) {
	q := GetQuerier(ctx, o.db)

	query := `
		SELECT id, name, latitude, longitude, radius_meters, is_active, created_at, updated_at
		FROM office_locations
		WHERE is_active = TRUE
		ORDER BY name ASC
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query office locations: %w", err)
	}
	defer rows.Close()

	var offices []geofence.OfficeLocation
	for rows.Next() {
		var office geofence.OfficeLocation
		err := rows.Scan(
			&office.ID, &office.Name, &office.Latitude, &office.Longitude, &office.RadiusMeters,
			&office.IsActive, &office.CreatedAt, &office.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan office location: %w", err)
		}
		offices = append(offices, office)
	}

	return offices, rows.Err()
}

// GetByID implements geofence.OfficeRepository.
func (o *officeRepository) GetByID(ctx context.Context, id string) (geofence.OfficeLocation, error) {
	q := GetQuerier(ctx, o.db)

	query := `
		SELECT id, name, latitude, longitude, radius_meters, is_active, created_at, updated_at
		FROM office_locations
		WHERE id = $1
	`

	var office geofence.OfficeLocation
	err := q.QueryRow(ctx, query, id).Scan(
		&office.ID, &office.Name, &office.Latitude, &office.Longitude, &office.RadiusMeters,
		&office.IsActive, &office.CreatedAt, &office.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return geofence.OfficeLocation{}, geofence.ErrOfficeNotFound
		}
		return geofence.OfficeLocation{}, fmt.Errorf("failed to get office location by ID: %w", err)
	}

	return office, nil
}

func NewOfficeRepository(db *database.DB) geofence.OfficeRepository {
	return &officeRepository{db: db}
}
