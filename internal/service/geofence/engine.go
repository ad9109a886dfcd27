package geofence

import (
	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/clock"
)

// Engine holds the pure location rules. It performs no I/O; the only
// outside input is the clock used to age samples.
type Engine struct {
	thresholds geofence.Thresholds
	clock      clock.Clock
}

func NewEngine(thresholds geofence.Thresholds, clk clock.Clock) *Engine {
	return &Engine{
		thresholds: thresholds,
		clock:      clk,
	}
}

func (e *Engine) Thresholds() geofence.Thresholds {
	return e.thresholds
}
