package geofence

import "context"

// GeofenceService validates device locations against the registered offices
// and screens them for spoofing.
type GeofenceService interface {
	// ValidateLocation matches the sample against the active offices.
	ValidateLocation(ctx context.Context, sample LocationSample) (ValidationResult, error)

	// DetectOffice ranks the offices the sample plausibly belongs to.
	DetectOffice(ctx context.Context, sample LocationSample) (DetectionResult, error)

	// DetectAnomalies compares the sample with an explicit history, oldest first.
	DetectAnomalies(ctx context.Context, sample LocationSample, history []LocationSample) AnomalyReport

	// Screen checks the sample against the user's recorded history and then
	// appends it to that history.
	Screen(ctx context.Context, userID string, sample LocationSample) AnomalyReport

	// History returns the user's retained samples, oldest first.
	History(ctx context.Context, userID string) []LocationSample

	ListActiveOffices(ctx context.Context) ([]OfficeLocation, error)

	// PruneHistory drops samples past the retention window and returns how
	// many users were left with no history.
	PruneHistory(ctx context.Context) int
}
