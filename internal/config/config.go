// Package config provides application configuration management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/analogvu/vumeter/internal/audio"
	"github.com/analogvu/vumeter/internal/vu"
)

// Configuration defaults are used when values are not specified.
const (
	DefaultWebPort          = 8090
	DefaultSampleRate       = 48000
	DefaultFramesPerBuffer  = 512
	DefaultReferenceDbfs    = -18.0
	DefaultSilenceThreshold = -20.0 // meter units, just above the -22 floor
	DefaultSilenceDuration  = 15000 // 15 seconds in milliseconds
	DefaultSilenceRecovery  = 5000  // 5 seconds in milliseconds
)

// SystemConfig holds system-level settings that require restart.
type SystemConfig struct {
	Port         int    `json:"port"`           // HTTP server port
	EventLogPath string `json:"event_log_path"` // JSONL event log (empty = disabled)
}

// AudioConfig holds capture device and stream settings.
type AudioConfig struct {
	Device          string `json:"device"`            // device UID or display-name substring (empty = default)
	DeviceType      string `json:"device_type"`       // "monitor" or "microphone"
	SampleRate      int    `json:"sample_rate"`       // capture sample rate in Hz
	FramesPerBuffer int    `json:"frames_per_buffer"` // requested period size
}

// ReferenceConfig holds the 0 VU calibration point.
type ReferenceConfig struct {
	Dbfs     float64 `json:"dbfs"`     // reference level in dBFS
	Override bool    `json:"override"` // pin the reference instead of the mode default
}

// SilenceDetectionConfig holds silence detection thresholds and timing.
type SilenceDetectionConfig struct {
	Threshold  float64 `json:"threshold"`   // meter units below which audio is silent
	DurationMs int64   `json:"duration_ms"` // duration below threshold before silence is confirmed
	RecoveryMs int64   `json:"recovery_ms"` // duration above threshold before recovery
}

// Config holds all application configuration. It is safe for
// concurrent use.
type Config struct {
	System           SystemConfig           `json:"system"`
	Audio            AudioConfig            `json:"audio"`
	Reference        ReferenceConfig        `json:"reference"`
	SilenceDetection SilenceDetectionConfig `json:"silence_detection"`
	Calibration      vu.Calibration         `json:"calibration"`

	mu       sync.RWMutex
	filePath string
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	return &Config{
		System: SystemConfig{Port: DefaultWebPort},
		Audio: AudioConfig{
			DeviceType:      string(audio.SystemOutputMonitor),
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
		},
		Reference: ReferenceConfig{Dbfs: DefaultReferenceDbfs},
		SilenceDetection: SilenceDetectionConfig{
			Threshold:  DefaultSilenceThreshold,
			DurationMs: DefaultSilenceDuration,
			RecoveryMs: DefaultSilenceRecovery,
		},
		filePath: filePath,
	}
}

// Load reads config from file, creating a default file if none exists.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return c.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	return c.validate()
}

// Save persists the configuration to disk.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

// validate checks configuration fields for correctness.
func (c *Config) validate() error {
	if c.System.Port < 1 || c.System.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 1-65535", c.System.Port)
	}
	switch audio.DeviceType(c.Audio.DeviceType) {
	case audio.SystemOutputMonitor, audio.Microphone:
	default:
		return fmt.Errorf("invalid device_type %q: must be %q or %q",
			c.Audio.DeviceType, audio.SystemOutputMonitor, audio.Microphone)
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 384000 {
		return fmt.Errorf("invalid sample_rate %d: must be 8000-384000", c.Audio.SampleRate)
	}
	if c.Audio.FramesPerBuffer < 32 || c.Audio.FramesPerBuffer > 65536 {
		return fmt.Errorf("invalid frames_per_buffer %d: must be 32-65536", c.Audio.FramesPerBuffer)
	}
	return nil
}

// applyDefaults sets default values for zero-value fields.
func (c *Config) applyDefaults() {
	if c.System.Port == 0 {
		c.System.Port = DefaultWebPort
	}
	if c.Audio.DeviceType == "" {
		c.Audio.DeviceType = string(audio.SystemOutputMonitor)
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = DefaultSampleRate
	}
	if c.Audio.FramesPerBuffer == 0 {
		c.Audio.FramesPerBuffer = DefaultFramesPerBuffer
	}
	if c.Reference.Dbfs == 0 && !c.Reference.Override {
		c.Reference.Dbfs = DefaultReferenceDbfs
	}
	if c.SilenceDetection.Threshold == 0 {
		c.SilenceDetection.Threshold = DefaultSilenceThreshold
	}
	if c.SilenceDetection.DurationMs == 0 {
		c.SilenceDetection.DurationMs = DefaultSilenceDuration
	}
	if c.SilenceDetection.RecoveryMs == 0 {
		c.SilenceDetection.RecoveryMs = DefaultSilenceRecovery
	}
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// CaptureOptions builds the immutable session options snapshot.
func (c *Config) CaptureOptions() audio.Options {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return audio.Options{
		ReferenceDbfs:     c.Reference.Dbfs,
		ReferenceOverride: c.Reference.Override,
		SampleRate:        c.Audio.SampleRate,
		FramesPerBuffer:   c.Audio.FramesPerBuffer,
		DeviceName:        c.Audio.Device,
		DeviceType:        audio.DeviceType(c.Audio.DeviceType),
	}
}

// Port returns the HTTP server port.
func (c *Config) Port() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.System.Port
}

// EventLogPath returns the event log path, empty when disabled.
func (c *Config) EventLogPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.System.EventLogPath
}

// CalibrationTable returns the calibration with defaults filled in.
func (c *Config) CalibrationTable() vu.Calibration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Calibration.Merge()
}

// Silence returns the silence detection settings.
func (c *Config) Silence() audio.SilenceConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return audio.SilenceConfig{
		Threshold:  c.SilenceDetection.Threshold,
		DurationMs: c.SilenceDetection.DurationMs,
		RecoveryMs: c.SilenceDetection.RecoveryMs,
	}
}

// UpdateSilence replaces the silence detection settings, keeping
// fields whose pointers are nil.
func (c *Config) UpdateSilence(threshold *float64, durationMs, recoveryMs *int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if threshold != nil {
		c.SilenceDetection.Threshold = *threshold
	}
	if durationMs != nil {
		c.SilenceDetection.DurationMs = *durationMs
	}
	if recoveryMs != nil {
		c.SilenceDetection.RecoveryMs = *recoveryMs
	}
}

// SetDevice records the active device selection.
func (c *Config) SetDevice(uid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Audio.Device = uid
}

// SetReference records a pinned reference level.
func (c *Config) SetReference(dbfs float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Reference.Dbfs = dbfs
	c.Reference.Override = true
}
