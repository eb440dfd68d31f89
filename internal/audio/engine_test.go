package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/analogvu/vumeter/internal/vu"
)

func newTestEngine(opts Options) *Engine {
	return NewEngine(opts, vu.Calibration{})
}

func TestEngine_RestsAtFloor(t *testing.T) {
	e := newTestEngine(Options{SampleRate: 48000, FramesPerBuffer: 512})

	floor := vu.DefaultCalibration().MeterMin
	assert.InDelta(t, floor, e.LeftDb(), 1e-9)
	assert.InDelta(t, floor, e.RightDb(), 1e-9)
	assert.Equal(t, "stopped", e.State())
	assert.False(t, e.Running())
}

func TestEngine_ReferenceRoundTrip(t *testing.T) {
	e := newTestEngine(Options{ReferenceDbfs: -18.0})

	for _, v := range []float64{-18.0, -14.5, 0.0, 3.25, -60.0} {
		e.SetReferenceDbfs(v)
		assert.InDelta(t, v, e.ReferenceDbfs(), 1e-12)
		assert.InDelta(t, v, e.EffectiveReferenceDbfs(), 1e-12, "override must win once set")
	}
}

func TestEngine_EffectiveReferenceModeDefaults(t *testing.T) {
	cal := vu.DefaultCalibration()

	monitor := newTestEngine(Options{ReferenceDbfs: -18.0, DeviceType: SystemOutputMonitor})
	assert.InDelta(t, cal.MonitorRefDbfs, monitor.EffectiveReferenceDbfs(), 1e-12)

	mic := newTestEngine(Options{ReferenceDbfs: -18.0, DeviceType: Microphone})
	assert.InDelta(t, cal.MicrophoneRefDbfs, mic.EffectiveReferenceDbfs(), 1e-12)

	// The configured reference is reported even while a mode default
	// is in effect.
	assert.InDelta(t, -18.0, monitor.ReferenceDbfs(), 1e-12)
}

func TestEngine_SwitchToUnknownDeviceFails(t *testing.T) {
	e := newTestEngine(Options{
		SampleRate:      48000,
		FramesPerBuffer: 512,
		DeviceType:      Microphone,
	})

	err := e.SwitchDevice("no-such-device-uid-0000")
	require.Error(t, err, "switching to an unknown device must fail")

	// The failed switch leaves the meter at the floor and the previous
	// device logically current.
	floor := vu.DefaultCalibration().MeterMin
	assert.InDelta(t, floor, e.LeftDb(), 1e-9)
	assert.InDelta(t, floor, e.RightDb(), 1e-9)
	assert.Empty(t, e.CurrentDeviceUID())
	assert.False(t, e.Running())
}

func TestEngine_StopIsIdempotent(t *testing.T) {
	e := newTestEngine(Options{})
	e.Stop()
	e.Stop()
	e.Close()
	assert.False(t, e.Running())
}

func TestMatchesDevice(t *testing.T) {
	assert.True(t, matchesDevice("alsa_output.pci.analog-stereo.monitor", "Monitor of Built-in Audio", "alsa_output.pci.analog-stereo.monitor"))
	assert.True(t, matchesDevice("alsa_input.usb-mic", "Blue Yeti Microphone", "Yeti"))
	assert.True(t, matchesDevice("alsa_input.usb-mic", "Blue Yeti Microphone", "usb-mic"))
	assert.False(t, matchesDevice("alsa_input.usb-mic", "Blue Yeti Microphone", "Jabra"))
	assert.False(t, matchesDevice("alsa_input.usb-mic", "Blue Yeti Microphone", ""))
}

func TestSessionStateNames(t *testing.T) {
	names := map[sessionState]string{
		stateIdle:              "idle",
		stateConnecting:        "connecting",
		stateNegotiatingDevice: "negotiating_device",
		stateStreaming:         "streaming",
		stateFailed:            "failed",
		stateStopped:           "stopped",
	}
	for st, want := range names {
		assert.Equal(t, want, st.String())
	}
}
