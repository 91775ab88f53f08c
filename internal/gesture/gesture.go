// Package gesture turns a horizontal drag into a swipe decision.
package gesture

import "watchwise/internal/domain"

const (
	DefaultThreshold     = 100.0
	DefaultAffinityRange = 100.0

	maxTiltOffset  = 200.0
	maxTiltDegrees = 15.0
)

// Interpreter classifies drag displacement. The zero value is not useful, use New.
type Interpreter struct {
	threshold     float64
	affinityRange float64
}

// New returns an interpreter; non-positive arguments fall back to the defaults.
func New(threshold, affinityRange float64) Interpreter {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if affinityRange <= 0 {
		affinityRange = DefaultAffinityRange
	}
	return Interpreter{threshold: threshold, affinityRange: affinityRange}
}

func (i Interpreter) Threshold() float64 {
	return i.threshold
}

// Classify decides a drag that ended at dx. The threshold itself is not a decision.
func (i Interpreter) Classify(dx float64) domain.Decision {
	switch {
	case dx > i.threshold:
		return domain.DecisionAccept
	case dx < -i.threshold:
		return domain.DecisionReject
	default:
		return domain.DecisionNone
	}
}

// AcceptAffinity is 0 at rest and saturates at 1 once dx reaches the affinity range.
func (i Interpreter) AcceptAffinity(dx float64) float64 {
	return clamp(dx/i.affinityRange, 0, 1)
}

func (i Interpreter) RejectAffinity(dx float64) float64 {
	return clamp(-dx/i.affinityRange, 0, 1)
}

// Rotation is the card tilt in degrees for the given offset.
func (i Interpreter) Rotation(dx float64) float64 {
	return clamp(dx, -maxTiltOffset, maxTiltOffset) * maxTiltDegrees / maxTiltOffset
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
