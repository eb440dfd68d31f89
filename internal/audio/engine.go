package audio

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/analogvu/vumeter/internal/vu"
)

// Engine is the public capture object: it orchestrates start, stop,
// device switching and reference calibration, owns the one active
// backend session, and publishes the latest meter values through
// atomics that any thread may poll at any rate.
type Engine struct {
	mu      sync.Mutex // serializes start/stop/switch
	opts    Options
	cal     vu.Calibration
	session *session

	// extractor runs on the capture callback thread while a session
	// is streaming; the controller touches it only between sessions.
	extractor *vu.Extractor

	leftBits    atomic.Uint64
	rightBits   atomic.Uint64
	refBits     atomic.Uint64
	refOverride atomic.Bool
	currentUID  atomic.Value // string

	// Set before Start; invoked from backend threads.
	onError         func(message string)
	onDeviceChanged func(uid string)
}

// NewEngine returns an Engine resting at the display floor. opts is
// copied; cal has zero fields filled from the default voicing.
func NewEngine(opts Options, cal vu.Calibration) *Engine {
	merged := cal.Merge()
	e := &Engine{
		opts:      opts,
		cal:       merged,
		extractor: vu.NewExtractor(merged),
	}
	e.refBits.Store(math.Float64bits(opts.ReferenceDbfs))
	e.refOverride.Store(opts.ReferenceOverride)
	e.currentUID.Store(opts.DeviceName)
	e.publishFloor()
	return e
}

// OnError registers the one-shot failure notification callback.
// Must be called before Start.
func (e *Engine) OnError(fn func(message string)) { e.onError = fn }

// OnDeviceChanged registers the post-switch notification callback.
// Must be called before Start.
func (e *Engine) OnDeviceChanged(fn func(uid string)) { e.onDeviceChanged = fn }

// Start opens a capture session against the configured device. It
// blocks until the connect attempt and device negotiation complete;
// later stream failures arrive through the OnError callback. Starting
// a running engine is a no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked()
}

func (e *Engine) startLocked() error {
	if e.session != nil {
		return nil
	}

	sess := newSession(e.opts, e.handleBuffer, e.emitError)
	if err := sess.start(); err != nil {
		return err
	}

	e.session = sess
	e.currentUID.Store(sess.deviceUID)
	return nil
}

// Stop tears the session down, joining the backend's worker thread
// before returning. Idempotent and safe to call from Close.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if e.session == nil {
		return
	}
	e.session.stop()
	e.session = nil
}

// Close stops the engine. It exists so owners can defer teardown.
func (e *Engine) Close() { e.Stop() }

// SwitchDevice stops capture, resets the ballistics and published
// levels to the display floor, and restarts against the named device.
// On failure the previous device remains current and the error is
// returned; the meter stays at the floor either way.
func (e *Engine) SwitchDevice(uid string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	e.extractor.Reset()
	e.publishFloor()

	prev := e.opts.DeviceName
	e.opts.DeviceName = uid

	if err := e.startLocked(); err != nil {
		e.opts.DeviceName = prev
		return err
	}

	resolved := e.CurrentDeviceUID()
	slog.Info("switched capture device", "uid", resolved)
	if e.onDeviceChanged != nil {
		e.onDeviceChanged(resolved)
	}
	return nil
}

// Running reports whether a capture session is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil
}

// State returns the current session state name for diagnostics.
func (e *Engine) State() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return stateStopped.String()
	}
	return e.session.currentState().String()
}

// CurrentDeviceUID returns the UID of the active (or last requested)
// device. Safe from any thread.
func (e *Engine) CurrentDeviceUID() string {
	uid, _ := e.currentUID.Load().(string)
	return uid
}

// SetReferenceDbfs pins the 0 VU calibration point, overriding the
// mode-dependent default. Takes effect on the next audio buffer.
func (e *Engine) SetReferenceDbfs(v float64) {
	e.refBits.Store(math.Float64bits(v))
	e.refOverride.Store(true)
}

// ReferenceDbfs returns the configured reference level in dBFS.
func (e *Engine) ReferenceDbfs() float64 {
	return math.Float64frombits(e.refBits.Load())
}

// EffectiveReferenceDbfs resolves the reference actually applied: the
// user override when set, otherwise the calibration default for the
// capture mode (monitored output runs hotter than a live microphone).
func (e *Engine) EffectiveReferenceDbfs() float64 {
	if e.refOverride.Load() {
		return math.Float64frombits(e.refBits.Load())
	}
	if e.opts.DeviceType == Microphone {
		return e.cal.MicrophoneRefDbfs
	}
	return e.cal.MonitorRefDbfs
}

// LeftDb returns the latest published left meter value. Lock-free.
func (e *Engine) LeftDb() float64 {
	return math.Float64frombits(e.leftBits.Load())
}

// RightDb returns the latest published right meter value. Lock-free.
func (e *Engine) RightDb() float64 {
	return math.Float64frombits(e.rightBits.Load())
}

// Floor returns the display floor the meter rests at.
func (e *Engine) Floor() float64 { return e.cal.MeterMin }

// Ceiling returns the top of the display range.
func (e *Engine) Ceiling() float64 { return e.cal.MeterMax }

// handleBuffer is the realtime path: extractor computation and two
// atomic stores, nothing else.
func (e *Engine) handleBuffer(buf []byte, channels, sampleRate int) {
	l, r, ok := e.extractor.Process(buf, channels, sampleRate, e.EffectiveReferenceDbfs())
	if !ok {
		return
	}
	e.leftBits.Store(math.Float64bits(l))
	e.rightBits.Store(math.Float64bits(r))
}

func (e *Engine) publishFloor() {
	floor := math.Float64bits(e.cal.MeterMin)
	e.leftBits.Store(floor)
	e.rightBits.Store(floor)
}

func (e *Engine) emitError(message string) {
	slog.Error("capture failure", "message", message)
	if e.onError != nil {
		e.onError(message)
	}
}
