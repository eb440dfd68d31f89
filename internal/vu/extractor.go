package vu

import (
	"encoding/binary"
	"log/slog"
	"math"
)

// Extractor turns one interleaved 32-bit float buffer into a pair of
// clamped meter values. It carries the per-channel filter memory that
// must survive across buffers (previous sample for pre-emphasis,
// smoothed power for VU integration, the wake flag) as per-session
// fields, so concurrent sessions cannot corrupt each other.
//
// Process runs on the capture callback thread only. It performs no
// allocation, no locking and no I/O beyond a one-shot slog on a
// malformed buffer that should never occur.
type Extractor struct {
	cal   Calibration
	left  *Ballistics
	right *Ballistics

	prevL, prevR     float32
	smoothL, smoothR float64
	awake            bool

	badBufferLogged bool
}

// NewExtractor returns an Extractor resting at the meter floor.
func NewExtractor(cal Calibration) *Extractor {
	return &Extractor{
		cal:   cal,
		left:  NewBallistics(cal, cal.MeterMin),
		right: NewBallistics(cal, cal.MeterMin),
	}
}

// Floor returns the display floor the meter rests at.
func (e *Extractor) Floor() float64 { return e.cal.MeterMin }

// Reset clears all persistent filter state: pre-emphasis memory,
// smoothed power, the wake flag and both ballistics instances. Called
// on device switch and session teardown.
func (e *Extractor) Reset() {
	e.prevL, e.prevR = 0, 0
	e.smoothL, e.smoothR = 0, 0
	e.awake = false
	e.left.Reset(e.cal.MeterMin)
	e.right.Reset(e.cal.MeterMin)
}

// Process consumes one interleaved F32LE buffer and returns the
// clamped left/right meter values. refDbfs is the effective reference
// already resolved by the caller (override or mode default). ok is
// false when the buffer carries nothing to publish.
//
// Mono buffers are treated as dual-mono. A buffer reporting zero
// channels is a logic error: surfaced once, ignored thereafter.
func (e *Extractor) Process(buf []byte, channels, sampleRate int, refDbfs float64) (leftDb, rightDb float64, ok bool) {
	if channels < 1 {
		if !e.badBufferLogged {
			e.badBufferLogged = true
			slog.Error("audio buffer reported zero channels, ignoring", "channels", channels)
		}
		return 0, 0, false
	}
	if sampleRate <= 0 {
		return 0, 0, false
	}

	frameBytes := 4 * channels
	frames := len(buf) / frameBytes
	if frames == 0 {
		return 0, 0, false
	}

	// Per-sample transient pre-emphasis feeding a running sum of
	// squares. The previous-sample memory persists across buffers.
	k := float32(e.cal.PreEmphasis)
	var sumL, sumR float64
	for i := range frames {
		off := i * frameBytes
		rawL := math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
		rawR := rawL
		if channels > 1 {
			rawR = math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:]))
		}

		l := rawL + k*(rawL-e.prevL)
		r := rawR + k*(rawR-e.prevR)
		e.prevL = rawL
		e.prevR = rawR

		sumL += float64(l) * float64(l)
		sumR += float64(r) * float64(r)
	}

	rmsL := math.Sqrt(sumL / float64(frames))
	rmsR := math.Sqrt(sumR / float64(frames))

	// Wake gate: on activity after silence, snap the smoothed power to
	// the instantaneous value instead of filtering toward it. Without
	// this the meter creeps up slowly after long silence.
	if rmsL > e.cal.WakeThreshold {
		e.smoothL = rmsL * rmsL
	}
	if rmsR > e.cal.WakeThreshold {
		e.smoothR = rmsR * rmsR
	}

	dt := float64(frames) / float64(sampleRate)
	dt = math.Min(dt, e.cal.MaxDt)

	alpha := math.Exp(-dt / e.cal.IntegrationTau)
	e.smoothL = alpha*e.smoothL + (1-alpha)*(rmsL*rmsL)
	e.smoothR = alpha*e.smoothR + (1-alpha)*(rmsR*rmsR)

	vuL := math.Sqrt(e.smoothL)
	vuR := math.Sqrt(e.smoothR)

	// Noise floor: force exact zero so the log conversion cannot make
	// residual noise look loud.
	if vuL < e.cal.NoiseFloor {
		vuL = 0
	}
	if vuR < e.cal.NoiseFloor {
		vuR = 0
	}

	dbfsL := 20 * math.Log10(math.Max(vuL, logEpsilon))
	dbfsR := 20 * math.Log10(math.Max(vuR, logEpsilon))

	targetL := dbfsL - refDbfs
	targetR := dbfsR - refDbfs

	// First sound after sleep: reset the needles onto the new target
	// so the meter does not visibly climb from the floor.
	if !e.awake && (vuL > e.cal.WakeThreshold || vuR > e.cal.WakeThreshold) {
		e.left.Reset(targetL)
		e.right.Reset(targetR)
		e.awake = true
	}

	outL := e.left.Process(targetL, dt)
	outR := e.right.Process(targetR, dt)

	return clamp(outL, e.cal.MeterMin, e.cal.MeterMax),
		clamp(outR, e.cal.MeterMin, e.cal.MeterMax), true
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
