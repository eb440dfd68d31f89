package audio

// DeviceType selects what kind of endpoint a session captures from.
type DeviceType string

const (
	// SystemOutputMonitor captures "what you hear" through a sink
	// monitor endpoint.
	SystemOutputMonitor DeviceType = "monitor"
	// Microphone captures a live input source.
	Microphone DeviceType = "microphone"
)

// Device describes one capture-capable endpoint. Produced only by
// enumeration, never mutated.
type Device struct {
	// Name is the human-readable display name.
	Name string `json:"name"`
	// UID is the backend's unique identifier for the endpoint.
	UID string `json:"uid"`
	// Channels is the endpoint's channel count, 0 when unknown.
	Channels int `json:"channels"`
	// IsInput reports whether this is a live input rather than a
	// monitor of an output.
	IsInput bool `json:"is_input"`
	// IsDefault marks the backend's default endpoint.
	IsDefault bool `json:"is_default"`
}

// Levels is the status payload consumed by presentation clients.
type Levels struct {
	// Left and Right are the published meter values in meter units.
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
	// PeakLeft and PeakRight are the held peak meter values.
	PeakLeft  float64 `json:"peak_left"`
	PeakRight float64 `json:"peak_right"`
	// Silence reports whether the signal has been below the silence
	// threshold long enough to count as confirmed silence.
	Silence bool `json:"silence,omitzero"`
	// SilenceDurationMs is how long silence has lasted in milliseconds.
	SilenceDurationMs int64 `json:"silence_duration_ms,omitzero"`
}

// Options is the immutable snapshot used to (re)start a session.
type Options struct {
	// ReferenceDbfs calibrates 0 on the meter scale; Override reports
	// whether the user pinned it (otherwise a mode default applies).
	ReferenceDbfs     float64
	ReferenceOverride bool

	// SampleRate and FramesPerBuffer shape the capture stream.
	SampleRate      int
	FramesPerBuffer int

	// DeviceName optionally names a specific endpoint (UID or display
	// name substring); empty resolves the default for DeviceType.
	DeviceName string
	DeviceType DeviceType
}
