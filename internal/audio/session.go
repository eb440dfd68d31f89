package audio

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// captureChannels is what the session requests from the backend; the
// backend upmixes mono endpoints so the callback always sees stereo.
const captureChannels = 2

// bufferFunc receives one interleaved F32LE buffer on the backend's
// realtime thread. Implementations must not block, lock or allocate.
type bufferFunc func(buf []byte, channels, sampleRate int)

// session owns exactly one connection to the platform audio server and
// one capture stream against a resolved endpoint. It is created fresh
// for every start so stale callbacks can never outlive their stream.
//
// The session has a stable address for the lifetime of the stream; the
// malgo callbacks close over it, which is what pins it.
type session struct {
	opts  Options
	state atomic.Int32

	ctx    *malgo.AllocatedContext
	device *malgo.Device

	// resolvedInfo must stay alive while InitDevice reads its ID.
	resolvedInfo malgo.DeviceInfo
	deviceUID    string
	deviceName   string
	useDefault   bool

	stopping atomic.Bool

	onBuffer bufferFunc
	onError  func(message string)
}

func newSession(opts Options, onBuffer bufferFunc, onError func(string)) *session {
	return &session{opts: opts, onBuffer: onBuffer, onError: onError}
}

func (s *session) setState(st sessionState) { s.state.Store(int32(st)) }

func (s *session) currentState() sessionState { return sessionState(s.state.Load()) }

// start walks the session through connect, device negotiation and
// stream open. It returns once streaming has begun or with a wrapped
// taxonomy error; failures after return arrive through onError.
func (s *session) start() error {
	s.setState(stateConnecting)

	ctx, err := malgo.InitContext(platformBackends(), malgo.ContextConfig{}, nil)
	if err != nil {
		s.setState(stateFailed)
		return fmt.Errorf("%w: %s: %v", ErrConnection, backendName(), err)
	}
	s.ctx = ctx

	s.setState(stateNegotiatingDevice)
	if err := s.negotiateDevice(); err != nil {
		s.teardownContext()
		s.setState(stateFailed)
		return err
	}

	if err := s.openStream(); err != nil {
		s.teardownContext()
		s.setState(stateFailed)
		return err
	}

	s.setState(stateStreaming)
	slog.Info("capture stream running",
		"backend", backendName(),
		"device", s.deviceName,
		"uid", s.deviceUID,
		"default", s.useDefault,
		"sample_rate", s.opts.SampleRate,
		"frames_per_buffer", s.opts.FramesPerBuffer)
	return nil
}

// negotiateDevice resolves the concrete endpoint to capture from:
// the named device when one was requested, otherwise the monitor or
// default source appropriate for the device type.
func (s *session) negotiateDevice() error {
	infos, err := s.ctx.Devices(malgo.Capture)
	if err != nil {
		return fmt.Errorf("%w: listing capture endpoints: %v", ErrDeviceResolution, err)
	}

	if s.opts.DeviceName != "" {
		for i := range infos {
			uid := decodeDeviceUID(infos[i].ID)
			if matchesDevice(uid, infos[i].Name(), s.opts.DeviceName) {
				s.resolvedInfo = infos[i]
				s.deviceUID = uid
				s.deviceName = infos[i].Name()
				return nil
			}
		}
		return fmt.Errorf("%w: no capture endpoint matches %q", ErrDeviceResolution, s.opts.DeviceName)
	}

	if len(infos) == 0 {
		return fmt.Errorf("%w: no capture endpoints available", ErrDeviceResolution)
	}

	if s.opts.DeviceType == SystemOutputMonitor {
		for i := range infos {
			uid := decodeDeviceUID(infos[i].ID)
			if isMonitorDevice(uid) {
				s.resolvedInfo = infos[i]
				s.deviceUID = uid
				s.deviceName = infos[i].Name()
				return nil
			}
		}
		slog.Warn(monitorFallbackNote)
	}

	// Default source: the backend's default capture endpoint, or the
	// first non-monitor one when none is flagged.
	pick := -1
	for i := range infos {
		if infos[i].IsDefault == 1 {
			pick = i
			break
		}
	}
	if pick < 0 {
		for i := range infos {
			if !isMonitorDevice(decodeDeviceUID(infos[i].ID)) {
				pick = i
				break
			}
		}
	}
	if pick < 0 {
		pick = 0
	}

	s.resolvedInfo = infos[pick]
	s.deviceUID = decodeDeviceUID(infos[pick].ID)
	s.deviceName = infos[pick].Name()
	s.useDefault = infos[pick].IsDefault == 1
	return nil
}

// openStream opens the capture stream requesting 32-bit float frames;
// resampling and format conversion are the backend's responsibility.
func (s *session) openStream() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = captureChannels
	cfg.SampleRate = uint32(s.opts.SampleRate)
	cfg.PeriodSizeInFrames = uint32(s.opts.FramesPerBuffer)
	cfg.Alsa.NoMMap = 1
	cfg.Capture.DeviceID = s.resolvedInfo.ID.Pointer()

	sampleRate := s.opts.SampleRate

	callbacks := malgo.DeviceCallbacks{
		// Realtime thread: extractor computation and atomic stores
		// only. No logging, no locks, no allocation.
		Data: func(_, input []byte, _ uint32) {
			s.onBuffer(input, captureChannels, sampleRate)
		},
		Stop: func() {
			if !s.stopping.Load() && s.currentState() == stateStreaming {
				s.setState(stateFailed)
				if s.onError != nil {
					s.onError("audio stream stopped unexpectedly")
				}
			}
		},
	}

	device, err := malgo.InitDevice(s.ctx.Context, cfg, callbacks)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStream, err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("%w: starting capture: %v", ErrStream, err)
	}

	s.device = device
	return nil
}

// stop releases the stream, the server connection and the backend's
// worker thread before returning. Idempotent; safe from Close.
func (s *session) stop() {
	if s.stopping.Swap(true) {
		return
	}

	if s.device != nil {
		// Uninit blocks until the backend's worker has let go of the
		// data callback, so no callback can fire after stop returns.
		s.device.Uninit()
		s.device = nil
	}
	s.teardownContext()
	s.setState(stateStopped)
}

func (s *session) teardownContext() {
	if s.ctx == nil {
		return
	}
	if err := s.ctx.Uninit(); err != nil {
		slog.Debug("backend context uninit", "error", err)
	}
	s.ctx.Free()
	s.ctx = nil
}

// decodeDeviceUID converts malgo's hex-encoded device ID into the
// backend's native identifier string.
func decodeDeviceUID(id malgo.DeviceID) string {
	raw, err := hex.DecodeString(id.String())
	if err != nil {
		return id.String()
	}
	return strings.TrimRight(string(raw), "\x00")
}

// matchesDevice reports whether an endpoint satisfies a user-supplied
// device selector: exact UID or a display-name/UID substring.
func matchesDevice(uid, name, want string) bool {
	if want == "" {
		return false
	}
	return uid == want || strings.Contains(name, want) || strings.Contains(uid, want)
}
