package geofence

import (
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/clock"
)

// HistoryStore keeps a short rolling window of samples per user. Samples
// leave the window when it exceeds maxSamples or when they are older than
// maxAge. Nothing is persisted.
type HistoryStore struct {
	mu         sync.Mutex
	clock      clock.Clock
	maxSamples int
	maxAge     time.Duration
	samples    map[string][]geofence.LocationSample
}

func NewHistoryStore(clk clock.Clock, maxSamples int, maxAge time.Duration) *HistoryStore {
	if maxSamples < 1 {
		maxSamples = 1
	}
	return &HistoryStore{
		clock:      clk,
		maxSamples: maxSamples,
		maxAge:     maxAge,
		samples:    make(map[string][]geofence.LocationSample),
	}
}

// Recent returns a copy of the user's window, oldest first.
func (h *HistoryStore) Recent(userID string) []geofence.LocationSample {
	h.mu.Lock()
	defer h.mu.Unlock()

	window := h.evict(userID)
	out := make([]geofence.LocationSample, len(window))
	copy(out, window)
	return out
}

// Append records sample and returns the window as it was before the sample
// was added, along with the sample as recorded. Checking and recording happen
// under one lock so two concurrent submissions for a user are compared against
// each other. A fix dated before the newest recorded one is restamped with the
// current time, so every sample is measured against the latest known position.
func (h *HistoryStore) Append(userID string, sample geofence.LocationSample) ([]geofence.LocationSample, geofence.LocationSample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	window := h.evict(userID)
	prior := make([]geofence.LocationSample, len(window))
	copy(prior, window)

	if n := len(window); n > 0 {
		newest := window[n-1].Timestamp
		if sample.Timestamp.Before(newest) {
			sample.Timestamp = h.clock.Now().UTC()
			if sample.Timestamp.Before(newest) {
				sample.Timestamp = newest
			}
		}
	}

	window = append(window, sample)
	if len(window) > h.maxSamples {
		window = window[len(window)-h.maxSamples:]
	}
	h.samples[userID] = window
	return prior, sample
}

// Prune evicts aged samples for every user and returns how many users were dropped.
func (h *HistoryStore) Prune() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	dropped := 0
	for userID := range h.samples {
		if len(h.evict(userID)) == 0 {
			dropped++
		}
	}
	return dropped
}

// evict must be called with mu held.
func (h *HistoryStore) evict(userID string) []geofence.LocationSample {
	window, ok := h.samples[userID]
	if !ok {
		return nil
	}

	if h.maxAge > 0 {
		cutoff := h.clock.Now().Add(-h.maxAge)
		keep := 0
		for keep < len(window) && window[keep].Timestamp.Before(cutoff) {
			keep++
		}
		window = window[keep:]
	}

	if len(window) == 0 {
		delete(h.samples, userID)
		return nil
	}
	h.samples[userID] = window
	return window
}
