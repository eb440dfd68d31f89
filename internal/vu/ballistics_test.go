package vu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quietCal returns the default voicing with jitter disabled so that
// convergence properties can be asserted exactly.
func quietCal() Calibration {
	cal := DefaultCalibration()
	cal.JitterDb = 0
	return cal
}

func TestBallistics_ConvergesMonotonically(t *testing.T) {
	b := NewBallistics(quietCal(), -22.0)

	const target = 0.0
	const dt = 0.010

	prev := -22.0
	for range 500 {
		out := b.Process(target, dt)
		assert.GreaterOrEqual(t, out, prev-1e-9, "needle must not move away from target")
		assert.LessOrEqual(t, out, target+1e-9, "needle must not overshoot a constant target")
		prev = out
	}
	assert.InDelta(t, target, prev, 0.01, "needle should settle on the target")
}

func TestBallistics_ResetHasNoTransient(t *testing.T) {
	cal := DefaultCalibration()
	b := NewBallistics(cal, cal.MeterMin)

	b.Reset(-3.5)
	out := b.Process(-3.5, 0.010)
	assert.InDelta(t, -3.5, out, cal.JitterDb+1e-9)
}

func TestBallistics_AttackFasterThanRelease(t *testing.T) {
	cal := quietCal()
	const dt = 0.005
	const step = 10.0

	// Rising step: count buffers until 63% of the step is covered.
	up := NewBallistics(cal, -10.0)
	risen := 0
	for out := -10.0; out < -10.0+0.63*step; risen++ {
		out = up.Process(0.0, dt)
		require.Less(t, risen, 10000)
	}

	// Falling step of the same size.
	down := NewBallistics(cal, 0.0)
	fallen := 0
	for out := 0.0; out > -0.63*step; fallen++ {
		out = down.Process(-10.0, dt)
		require.Less(t, fallen, 10000)
	}

	assert.Less(t, risen, fallen, "attack must reach 63%% before release recovers it")
}

func TestBallistics_DegenerateTauSnaps(t *testing.T) {
	cal := quietCal()
	cal.AttackTau = 0
	cal.ReleaseTau = 0
	cal.PeakAttackTau = 0
	cal.PeakReleaseTau = 0

	b := NewBallistics(cal, -22.0)
	out := b.Process(-1.0, 0.010)
	assert.False(t, out != out, "tau=0 must not produce NaN")
	assert.InDelta(t, -1.0, out, 1e-9, "tau=0 snaps directly to the target")
}

func TestBallistics_ZeroDtIsClamped(t *testing.T) {
	b := NewBallistics(quietCal(), -22.0)
	out := b.Process(0.0, 0)
	assert.False(t, out != out, "zero dt must not divide by zero")
	assert.Greater(t, out, -22.0, "clamped minimum dt still moves the needle")
}

func TestBallistics_JitterStaysBounded(t *testing.T) {
	cal := DefaultCalibration()
	b := NewBallistics(cal, -5.0)

	// Hold the target at the resting value; any movement is jitter
	// plus filter noise, which must stay inside the jitter bound.
	b.Reset(-5.0)
	for range 1000 {
		out := b.Process(-5.0, 0.010)
		assert.InDelta(t, -5.0, out, cal.JitterDb+1e-9)
	}
}
