package geofence

// EffectiveRadius inflates the nominal radius by a share of the reported
// accuracy. Compensation is additive so the result never drops below radius.
func (e *Engine) EffectiveRadius(radius, accuracy float64) float64 {
	t := e.thresholds
	switch {
	case accuracy > t.ExtremeCompensationAbove:
		return radius + t.ExtremeCompensation*accuracy
	case accuracy > t.HighCompensationAbove:
		return radius + t.HighCompensation*accuracy
	case accuracy > t.MediumCompensationAbove:
		return radius + t.MediumCompensation*accuracy
	default:
		return radius
	}
}
