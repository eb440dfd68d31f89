package audio

import (
	"sync"
	"time"
)

// SilenceConfig holds the silence detection thresholds. Threshold is
// in meter units, matched against the published values.
type SilenceConfig struct {
	Threshold  float64 // meter units below which the signal counts as silent
	DurationMs int64   // milliseconds of silence before it is confirmed
	RecoveryMs int64   // milliseconds of signal before recovery completes
}

// SilenceEvent is the result of one detector update.
type SilenceEvent struct {
	InSilence  bool  // currently in confirmed silence
	DurationMs int64 // current silence duration (0 when not silent)

	// Transition flags for notifications and the event log.
	JustEntered     bool
	JustRecovered   bool
	TotalDurationMs int64 // set only when JustRecovered
}

// SilenceDetector confirms silence with enter/recover hysteresis so a
// dropout of a few frames neither triggers nor clears the state. It
// runs on the status poll loop and is safe for concurrent use.
type SilenceDetector struct {
	mu            sync.Mutex
	silenceStart  time.Time
	recoveryStart time.Time
	inSilence     bool
	durationMs    int64
}

// NewSilenceDetector returns a detector with no history.
func NewSilenceDetector() *SilenceDetector {
	return &SilenceDetector{}
}

// Update feeds the latest meter values and returns the current state.
func (d *SilenceDetector) Update(left, right float64, cfg SilenceConfig, now time.Time) SilenceEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	silent := left < cfg.Threshold && right < cfg.Threshold

	var event SilenceEvent

	if silent {
		d.recoveryStart = time.Time{}

		if d.silenceStart.IsZero() {
			d.silenceStart = now
		}
		ms := now.Sub(d.silenceStart).Milliseconds()
		d.durationMs = ms

		switch {
		case d.inSilence:
			event.InSilence = true
			event.DurationMs = ms
		case ms >= cfg.DurationMs:
			d.inSilence = true
			event.InSilence = true
			event.DurationMs = ms
			event.JustEntered = true
		}
		return event
	}

	// Signal is back. Outside confirmed silence just forget the start;
	// inside it, require the recovery window before clearing.
	if !d.inSilence {
		d.silenceStart = time.Time{}
		return event
	}

	if d.recoveryStart.IsZero() {
		d.recoveryStart = now
	}
	if now.Sub(d.recoveryStart).Milliseconds() >= cfg.RecoveryMs {
		event.JustRecovered = true
		event.TotalDurationMs = d.durationMs

		d.inSilence = false
		d.durationMs = 0
		d.silenceStart = time.Time{}
		d.recoveryStart = time.Time{}
		return event
	}

	// Still inside the recovery window.
	event.InSilence = true
	return event
}

// Reset clears all detector state.
func (d *SilenceDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.silenceStart = time.Time{}
	d.recoveryStart = time.Time{}
	d.inSilence = false
	d.durationMs = 0
}
