// Package eventlog provides unified event logging for the meter.
// It captures capture failures, device switches and silence periods
// in a single JSON lines file.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event.
type EventType string

// Capture event types.
const (
	CaptureError  EventType = "capture_error"
	DeviceChanged EventType = "device_changed"
)

// Silence event types.
const (
	SilenceStart EventType = "silence_start"
	SilenceEnd   EventType = "silence_end"
)

// Event represents a single log entry with type-specific details.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`
	Message   string    `json:"msg,omitempty"`
	Details   any       `json:"details,omitempty"`
}

// DeviceDetails contains device-switch event details.
type DeviceDetails struct {
	UID string `json:"uid"`
}

// SilenceDetails contains silence-specific event details.
type SilenceDetails struct {
	LevelLeft  float64 `json:"level_left"`
	LevelRight float64 `json:"level_right"`
	Threshold  float64 `json:"threshold"`
	DurationMs int64   `json:"duration_ms,omitempty"`
}

// Logger writes events to a JSON lines file. A nil *Logger discards
// everything, so callers need not guard the disabled case.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

// NewLogger creates a new event logger appending to filePath.
func NewLogger(filePath string) (*Logger, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &Logger{file: file, encoder: json.NewEncoder(file)}, nil
}

// Log writes an event to the log file.
func (l *Logger) Log(event *Event) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return l.encoder.Encode(event)
}

// LogCaptureError logs a capture failure.
func (l *Logger) LogCaptureError(message string) error {
	return l.Log(&Event{Type: CaptureError, Message: message})
}

// LogDeviceChanged logs a successful device switch.
func (l *Logger) LogDeviceChanged(uid string) error {
	return l.Log(&Event{Type: DeviceChanged, Details: &DeviceDetails{UID: uid}})
}

// LogSilenceStart logs a confirmed silence period beginning.
func (l *Logger) LogSilenceStart(left, right, threshold float64) error {
	return l.Log(&Event{
		Type: SilenceStart,
		Details: &SilenceDetails{
			LevelLeft:  left,
			LevelRight: right,
			Threshold:  threshold,
		},
	})
}

// LogSilenceEnd logs a silence period recovering.
func (l *Logger) LogSilenceEnd(durationMs int64, left, right, threshold float64) error {
	return l.Log(&Event{
		Type: SilenceEnd,
		Details: &SilenceDetails{
			LevelLeft:  left,
			LevelRight: right,
			Threshold:  threshold,
			DurationMs: durationMs,
		},
	})
}

// Close closes the underlying log file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
