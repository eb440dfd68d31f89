package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/analogvu/vumeter/internal/audio"
)

func TestConfig_Defaults(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "config.json"))

	assert.Equal(t, DefaultWebPort, c.Port())
	opts := c.CaptureOptions()
	assert.Equal(t, audio.SystemOutputMonitor, opts.DeviceType)
	assert.Equal(t, DefaultSampleRate, opts.SampleRate)
	assert.Equal(t, DefaultFramesPerBuffer, opts.FramesPerBuffer)
	assert.InDelta(t, DefaultReferenceDbfs, opts.ReferenceDbfs, 1e-12)
	assert.False(t, opts.ReferenceOverride)
}

func TestConfig_LoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	c := New(path)

	require.NoError(t, c.Load())

	_, err := os.Stat(path)
	assert.NoError(t, err, "load must write a default config when none exists")
}

func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	c := New(path)
	c.SetDevice("alsa_output.pci.analog-stereo.monitor")
	c.SetReference(-14.0)
	require.NoError(t, c.Save())

	reloaded := New(path)
	require.NoError(t, reloaded.Load())

	opts := reloaded.CaptureOptions()
	assert.Equal(t, "alsa_output.pci.analog-stereo.monitor", opts.DeviceName)
	assert.InDelta(t, -14.0, opts.ReferenceDbfs, 1e-12)
	assert.True(t, opts.ReferenceOverride)
}

func TestConfig_LoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"audio":{"device_type":"telepathy"}}`), 0o600))

	c := New(path)
	assert.Error(t, c.Load())
}

func TestConfig_CalibrationOverridesMergeWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"calibration":{"attack_tau":0.120}}`), 0o600))

	c := New(path)
	require.NoError(t, c.Load())

	cal := c.CalibrationTable()
	assert.InDelta(t, 0.120, cal.AttackTau, 1e-12)
	assert.InDelta(t, 0.320, cal.ReleaseTau, 1e-12, "unset fields fall back to defaults")
}

func TestConfig_UpdateSilencePartial(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "config.json"))

	threshold := -18.5
	c.UpdateSilence(&threshold, nil, nil)

	s := c.Silence()
	assert.InDelta(t, -18.5, s.Threshold, 1e-12)
	assert.Equal(t, int64(DefaultSilenceDuration), s.DurationMs)
	assert.Equal(t, int64(DefaultSilenceRecovery), s.RecoveryMs)
}
