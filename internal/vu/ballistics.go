package vu

import (
	"math"
	"math/rand/v2"
)

// Ballistics simulates the dynamic response of a mechanical VU needle:
// a primary one-pole "needle" filter with asymmetric attack/release,
// a faster peak follower blended in for transient overshoot, and a
// bounded micro-perturbation so the needle never looks frozen.
//
// A Ballistics instance is confined to a single goroutine (the capture
// callback); each channel owns its own instance, so no locking.
type Ballistics struct {
	cal   Calibration
	value float64
	peak  float64
	rng   *rand.Rand
}

// NewBallistics returns a Ballistics resting at initialDb.
func NewBallistics(cal Calibration, initialDb float64) *Ballistics {
	return &Ballistics{
		cal:   cal,
		value: initialDb,
		peak:  initialDb,
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Reset snaps both internal states to valueDb with no transient.
func (b *Ballistics) Reset(valueDb float64) {
	b.value = valueDb
	b.peak = valueDb
}

// onePole advances y toward x with time constant tau over dt seconds.
// tau <= 0 degenerates to a direct snap rather than dividing by zero.
func onePole(y, x, dt, tau float64) float64 {
	if tau <= 0 {
		return x
	}
	a := math.Exp(-dt / tau)
	return a*y + (1-a)*x
}

// Process advances the needle toward targetDb over dtSeconds and
// returns the display value. Internal state is intentionally not
// clamped to the meter range; the extractor clamps before publishing
// so overshoot math stays correct near the scale ends.
func (b *Ballistics) Process(targetDb, dtSeconds float64) float64 {
	dt := math.Max(minDt, dtSeconds)

	tau := b.cal.ReleaseTau
	if targetDb > b.value {
		tau = b.cal.AttackTau
	}
	b.value = onePole(b.value, targetDb, dt, tau)

	peakTau := b.cal.PeakReleaseTau
	if targetDb > b.peak {
		peakTau = b.cal.PeakAttackTau
	}
	b.peak = onePole(b.peak, targetDb, dt, peakTau)

	out := b.value + b.cal.OvershootMix*(b.peak-b.value)

	if b.cal.JitterDb > 0 {
		out += (b.rng.Float64()*2 - 1) * b.cal.JitterDb
	}

	return out
}
