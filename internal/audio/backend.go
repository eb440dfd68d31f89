// Package audio owns the capture side of the meter: the backend
// session against the platform audio server, device enumeration, and
// the engine that publishes meter levels for any thread to poll.
package audio

import "errors"

// Session lifecycle states. A session walks Idle → Connecting →
// NegotiatingDevice → Streaming and terminates in Failed or Stopped.
type sessionState int32

const (
	stateIdle sessionState = iota
	stateConnecting
	stateNegotiatingDevice
	stateStreaming
	stateFailed
	stateStopped
)

func (s sessionState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateConnecting:
		return "connecting"
	case stateNegotiatingDevice:
		return "negotiating_device"
	case stateStreaming:
		return "streaming"
	case stateFailed:
		return "failed"
	case stateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Capture error taxonomy. All are non-fatal to the process: start and
// switch return them to the caller, who keeps running with an idle
// meter. Runtime stream failures after a successful start surface only
// through the engine's error callback.
var (
	// ErrConnection means the platform audio server is unreachable.
	ErrConnection = errors.New("cannot connect to audio server")
	// ErrDeviceResolution means a named device was not found or no
	// default endpoint is available.
	ErrDeviceResolution = errors.New("audio device resolution failed")
	// ErrStream means format negotiation or stream open failed.
	ErrStream = errors.New("audio stream open failed")
)
