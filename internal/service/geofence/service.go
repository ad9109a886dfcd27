package geofence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/cache"
)

type GeofenceServiceImpl struct {
	geofence.OfficeRepository
	engine  *Engine
	history *HistoryStore
	cache   *cache.Cache
}

func NewGeofenceService(officeRepo geofence.OfficeRepository, engine *Engine, history *HistoryStore, c *cache.Cache) geofence.GeofenceService {
	return &GeofenceServiceImpl{
		OfficeRepository: officeRepo,
		engine:           engine,
		history:          history,
		cache:            c,
	}
}

func (s *GeofenceServiceImpl) activeOffices(ctx context.Context) ([]geofence.OfficeLocation, error) {
	offices, err := cache.GetOrCompute(ctx, s.cache, cache.KeyActiveOffices, cache.TTLActiveOffices, s.OfficeRepository.ListActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active offices: %w", err)
	}
	return offices, nil
}

// ValidateLocation implements geofence.GeofenceService.
func (s *GeofenceServiceImpl) ValidateLocation(ctx context.Context, sample geofence.LocationSample) (geofence.ValidationResult, error) {
	offices, err := s.activeOffices(ctx)
	if err != nil {
		return geofence.ValidationResult{}, err
	}

	result := s.engine.Validate(sample, offices)
	if len(geofence.ActiveOffices(offices)) == 0 {
		return result, geofence.ErrNoActiveOffices
	}
	return result, nil
}

// DetectOffice implements geofence.GeofenceService.
func (s *GeofenceServiceImpl) DetectOffice(ctx context.Context, sample geofence.LocationSample) (geofence.DetectionResult, error) {
	offices, err := s.activeOffices(ctx)
	if err != nil {
		return geofence.DetectionResult{}, err
	}
	if len(geofence.ActiveOffices(offices)) == 0 {
		return geofence.DetectionResult{}, geofence.ErrNoActiveOffices
	}
	return s.engine.Rank(sample, offices), nil
}

// DetectAnomalies implements geofence.GeofenceService.
func (s *GeofenceServiceImpl) DetectAnomalies(ctx context.Context, sample geofence.LocationSample, history []geofence.LocationSample) geofence.AnomalyReport {
	return s.engine.DetectAnomalies(sample, history)
}

// Screen implements geofence.GeofenceService.
func (s *GeofenceServiceImpl) Screen(ctx context.Context, userID string, sample geofence.LocationSample) geofence.AnomalyReport {
	prior, recorded := s.history.Append(userID, sample)
	report := s.engine.DetectAnomalies(recorded, prior)
	if report.IsAnomalous {
		slog.Warn("Location anomaly detected",
			"user_id", userID,
			"risk_level", report.RiskLevel,
			"reasons", report.Reasons,
		)
	}
	return report
}

// History implements geofence.GeofenceService.
func (s *GeofenceServiceImpl) History(ctx context.Context, userID string) []geofence.LocationSample {
	return s.history.Recent(userID)
}

// ListActiveOffices implements geofence.GeofenceService.
func (s *GeofenceServiceImpl) ListActiveOffices(ctx context.Context) ([]geofence.OfficeLocation, error) {
	return s.activeOffices(ctx)
}

// PruneHistory implements geofence.GeofenceService.
func (s *GeofenceServiceImpl) PruneHistory(ctx context.Context) int {
	dropped := s.history.Prune()
	if dropped > 0 {
		slog.Info("Pruned location history", "users_dropped", dropped)
	}
	return dropped
}
