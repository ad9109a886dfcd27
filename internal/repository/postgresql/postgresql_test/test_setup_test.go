package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/repository/postgresql"
	"github.com/cmlabs-hris/attendance-geofence-go/migrations"
	"github.com/stretchr/testify/require"
)

// TestDatabaseSetup holds the integration database shared by the tests.
type TestDatabaseSetup struct {
	DB *database.DB
}

// NewTestDatabase connects to TEST_DATABASE_URL and applies the schema. The
// test is skipped when no database is configured.
func NewTestDatabase(t *testing.T) *TestDatabaseSetup {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgreSQLDB(context.Background(), dsn)
	require.NoError(t, err, "failed to connect to test database")

	ctx := context.Background()
	require.NoError(t, postgresql.Migrate(ctx, db, migrations.FS))

	setup := &TestDatabaseSetup{DB: db}
	require.NoError(t, setup.TruncateAllTables(ctx))
	t.Cleanup(setup.Close)
	return setup
}

// TruncateAllTables removes every row the tests may have written.
func (s *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	return postgresql.WithTransaction(ctx, s.DB, func(ctx context.Context) error {
		q := postgresql.GetQuerier(ctx, s.DB)
		for _, table := range []string{"attendance_sessions", "office_locations"} {
			if _, err := q.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

// CreateOffice inserts an office and returns its ID.
func (s *TestDatabaseSetup) CreateOffice(t *testing.T, name string, lat, lng, radius float64, active bool) string {
	t.Helper()

	var id string
	err := s.DB.QueryRow(context.Background(), `
		INSERT INTO office_locations (name, latitude, longitude, radius_meters, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, name, lat, lng, radius, active).Scan(&id)
	require.NoError(t, err)
	return id
}

// Migrate applies the embedded schema again.
func (s *TestDatabaseSetup) Migrate(t *testing.T) {
	t.Helper()
	require.NoError(t, postgresql.Migrate(context.Background(), s.DB, migrations.FS))
}

func (s *TestDatabaseSetup) Close() {
	s.DB.Close()
}
