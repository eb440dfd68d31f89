//go:build linux

package audio

import (
	"strings"

	"github.com/gen2brain/malgo"
)

// platformBackends returns the native backend binding for this
// platform. Linux talks to the PulseAudio server.
func platformBackends() []malgo.Backend {
	return []malgo.Backend{malgo.BackendPulseaudio}
}

// backendName identifies the backend in logs and device listings.
func backendName() string { return "PulseAudio" }

// isMonitorDevice reports whether a capture endpoint mirrors an output
// sink. PulseAudio exposes these as sources with a ".monitor" suffix.
func isMonitorDevice(uid string) bool {
	return strings.HasSuffix(uid, ".monitor")
}

// monitorFallbackNote explains what happens when no monitor endpoint
// exists for SystemOutputMonitor capture.
const monitorFallbackNote = "no sink monitor found, falling back to default source"
