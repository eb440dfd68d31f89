package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var silenceCfg = SilenceConfig{Threshold: -20.0, DurationMs: 1000, RecoveryMs: 500}

func TestSilenceDetector_EntersAfterDuration(t *testing.T) {
	d := NewSilenceDetector()
	start := time.Now()

	ev := d.Update(-22, -22, silenceCfg, start)
	assert.False(t, ev.InSilence, "silence must not be confirmed immediately")

	ev = d.Update(-22, -22, silenceCfg, start.Add(999*time.Millisecond))
	assert.False(t, ev.InSilence)

	ev = d.Update(-22, -22, silenceCfg, start.Add(1001*time.Millisecond))
	assert.True(t, ev.InSilence)
	assert.True(t, ev.JustEntered)
	assert.GreaterOrEqual(t, ev.DurationMs, int64(1001))

	// Entered only once.
	ev = d.Update(-22, -22, silenceCfg, start.Add(1500*time.Millisecond))
	assert.True(t, ev.InSilence)
	assert.False(t, ev.JustEntered)
}

func TestSilenceDetector_OneLoudChannelBlocksSilence(t *testing.T) {
	d := NewSilenceDetector()
	start := time.Now()

	for i := range 5 {
		ev := d.Update(-22, -2, silenceCfg, start.Add(time.Duration(i)*time.Second))
		assert.False(t, ev.InSilence)
	}
}

func TestSilenceDetector_RecoveryNeedsSustainedSignal(t *testing.T) {
	d := NewSilenceDetector()
	start := time.Now()

	d.Update(-22, -22, silenceCfg, start)
	ev := d.Update(-22, -22, silenceCfg, start.Add(1100*time.Millisecond))
	assert.True(t, ev.InSilence)

	// A blip shorter than the recovery window keeps the silence state.
	ev = d.Update(-2, -2, silenceCfg, start.Add(1200*time.Millisecond))
	assert.True(t, ev.InSilence)
	assert.False(t, ev.JustRecovered)

	ev = d.Update(-2, -2, silenceCfg, start.Add(1800*time.Millisecond))
	assert.True(t, ev.JustRecovered)
	assert.False(t, ev.InSilence)
	assert.GreaterOrEqual(t, ev.TotalDurationMs, int64(1100))

	// Fully recovered; fresh silence starts the clock over.
	ev = d.Update(-22, -22, silenceCfg, start.Add(1900*time.Millisecond))
	assert.False(t, ev.InSilence)
}

func TestSilenceDetector_Reset(t *testing.T) {
	d := NewSilenceDetector()
	start := time.Now()

	d.Update(-22, -22, silenceCfg, start)
	d.Update(-22, -22, silenceCfg, start.Add(2*time.Second))
	d.Reset()

	ev := d.Update(-22, -22, silenceCfg, start.Add(3*time.Second))
	assert.False(t, ev.InSilence, "reset must forget accumulated silence")
}

func TestPeakHolder_HoldsThenDecays(t *testing.T) {
	p := NewPeakHolder(-22)
	now := time.Now()

	l, r := p.Update(-5, -8, now)
	assert.InDelta(t, -5.0, l, 1e-9)
	assert.InDelta(t, -8.0, r, 1e-9)

	// Lower values inside the hold window do not displace the peak.
	l, r = p.Update(-15, -15, now.Add(1*time.Second))
	assert.InDelta(t, -5.0, l, 1e-9)
	assert.InDelta(t, -8.0, r, 1e-9)

	// A higher value replaces it immediately.
	l, _ = p.Update(-2, -15, now.Add(2*time.Second))
	assert.InDelta(t, -2.0, l, 1e-9)

	// After the hold expires the live value takes over.
	_, r = p.Update(-15, -15, now.Add(6*time.Second))
	assert.InDelta(t, -15.0, r, 1e-9)
}

func TestPeakHolder_Reset(t *testing.T) {
	p := NewPeakHolder(-22)
	now := time.Now()

	p.Update(-1, -1, now)
	p.Reset()

	l, r := p.Update(-22, -22, now.Add(time.Millisecond))
	assert.InDelta(t, -22.0, l, 1e-9)
	assert.InDelta(t, -22.0, r, 1e-9)
}
