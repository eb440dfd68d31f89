//go:build darwin

package audio

import "github.com/gen2brain/malgo"

// platformBackends returns the native backend binding for this
// platform. macOS talks to CoreAudio.
func platformBackends() []malgo.Backend {
	return []malgo.Backend{malgo.BackendCoreaudio}
}

// backendName identifies the backend in logs and device listings.
func backendName() string { return "CoreAudio" }

// isMonitorDevice reports whether a capture endpoint mirrors an output
// sink. CoreAudio exposes no sink monitors without a loopback driver
// installed, so system-output capture falls back to the default input.
func isMonitorDevice(string) bool { return false }

// monitorFallbackNote explains what happens when no monitor endpoint
// exists for SystemOutputMonitor capture.
const monitorFallbackNote = "CoreAudio exposes no sink monitors, falling back to default input (install a loopback driver to meter system output)"
