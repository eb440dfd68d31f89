package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/analogvu/vumeter/internal/audio"
	"github.com/analogvu/vumeter/internal/config"
	"github.com/analogvu/vumeter/internal/eventlog"
	"github.com/analogvu/vumeter/internal/server"
)

const (
	// levelsInterval paces level frames to clients. Faster than the
	// needle time constants, so the ballistics stay smooth on screen.
	levelsInterval = 60 * time.Millisecond
	statusInterval = 3 * time.Second
)

// Server is the HTTP server exposing the meter over WebSocket and REST.
type Server struct {
	config   *config.Config
	engine   *audio.Engine
	commands *server.CommandHandler
	version  *VersionChecker
	events   *eventlog.Logger
	peaks    *audio.PeakHolder
	silence  *audio.SilenceDetector

	levels    atomic.Value // audio.Levels
	stopCh    chan struct{}
	startedAt time.Time
}

// NewServer returns a new Server wired to the given engine. events may
// be nil when event logging is disabled.
func NewServer(cfg *config.Config, engine *audio.Engine, events *eventlog.Logger) *Server {
	s := &Server{
		config:    cfg,
		engine:    engine,
		commands:  server.NewCommandHandler(cfg, engine),
		version:   NewVersionChecker(),
		events:    events,
		peaks:     audio.NewPeakHolder(engine.Floor()),
		silence:   audio.NewSilenceDetector(),
		stopCh:    make(chan struct{}),
		startedAt: time.Now(),
	}
	s.levels.Store(audio.Levels{
		Left:      engine.Floor(),
		Right:     engine.Floor(),
		PeakLeft:  engine.Floor(),
		PeakRight: engine.Floor(),
	})
	return s
}

// runMonitor polls the engine, maintains peak hold and silence state,
// and caches the composite levels payload for all clients. One loop
// per process so silence transitions are logged exactly once.
func (s *Server) runMonitor() {
	ticker := time.NewTicker(levelsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.levels.Store(s.sampleLevels(now))
		}
	}
}

// sampleLevels reads the engine once and folds in peak hold and
// silence detection.
func (s *Server) sampleLevels(now time.Time) audio.Levels {
	left := s.engine.LeftDb()
	right := s.engine.RightDb()
	peakL, peakR := s.peaks.Update(left, right, now)

	cfg := s.config.Silence()
	event := s.silence.Update(left, right, cfg, now)

	if event.JustEntered {
		slog.Warn("silence detected", "left", left, "right", right, "threshold", cfg.Threshold)
		if err := s.events.LogSilenceStart(left, right, cfg.Threshold); err != nil {
			slog.Error("failed to log silence start", "error", err)
		}
	}
	if event.JustRecovered {
		slog.Info("silence recovered", "duration_ms", event.TotalDurationMs)
		if err := s.events.LogSilenceEnd(event.TotalDurationMs, left, right, cfg.Threshold); err != nil {
			slog.Error("failed to log silence end", "error", err)
		}
	}

	return audio.Levels{
		Left:              left,
		Right:             right,
		PeakLeft:          peakL,
		PeakRight:         peakR,
		Silence:           event.InSilence,
		SilenceDurationMs: event.DurationMs,
	}
}

// currentLevels returns the most recently sampled levels payload.
func (s *Server) currentLevels() audio.Levels {
	levels, _ := s.levels.Load().(audio.Levels)
	return levels
}

// handleWebSocket handles bidirectional WebSocket communication for real-time updates.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.UpgradeConnection(w, r)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	// Create buffered send channel for thread-safe writes.
	// Only the writer goroutine writes to the connection, preventing race conditions.
	send := make(chan any, 16)
	done := make(chan struct{})
	statusUpdate := make(chan struct{}, 1)

	// Writer goroutine - sole writer to the connection
	go s.runWebSocketWriter(conn, send)

	// Reader goroutine - handles incoming commands
	go s.runWebSocketReader(conn, send, done, statusUpdate)

	s.runWebSocketEventLoop(send, done, statusUpdate)
}

// runWebSocketWriter writes messages from the send channel to the connection.
func (s *Server) runWebSocketWriter(conn server.WebSocketConn, send <-chan any) {
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("WebSocket close error", "error", err)
		}
	}()
	for msg := range send {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// runWebSocketReader reads commands from the connection and dispatches them.
func (s *Server) runWebSocketReader(conn server.WebSocketConn, send chan<- any, done, statusUpdate chan<- struct{}) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in WebSocket reader", "panic", r)
		}
		close(done)
	}()

	for {
		var cmd server.WSCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.commands.Handle(cmd, send, func() {
			select {
			case statusUpdate <- struct{}{}:
			default:
			}
		})
	}
}

// runWebSocketEventLoop handles periodic status and level updates.
func (s *Server) runWebSocketEventLoop(send chan any, done, statusUpdate <-chan struct{}) {
	levelsTicker := time.NewTicker(levelsInterval)
	statusTicker := time.NewTicker(statusInterval)
	defer levelsTicker.Stop()
	defer statusTicker.Stop()

	// trySend attempts to send a message, returning false if done is closed
	trySend := func(msg any) bool {
		select {
		case send <- msg:
			return true
		case <-done:
			return false
		}
	}

	// Send initial status
	if !trySend(s.buildWSStatus()) {
		close(send)
		return
	}

	for {
		select {
		case <-done:
			close(send)
			return
		case <-statusUpdate:
			if !trySend(s.buildWSStatus()) {
				close(send)
				return
			}
		case <-levelsTicker.C:
			if !trySend(wsLevelsResponse{Type: "levels", Levels: s.currentLevels()}) {
				close(send)
				return
			}
		case <-statusTicker.C:
			if !trySend(s.buildWSStatus()) {
				close(send)
				return
			}
		}
	}
}

// wsLevelsResponse is the high-rate meter frame.
type wsLevelsResponse struct {
	Type string `json:"type"`
	audio.Levels
}

// wsStatusResponse is the low-rate state snapshot.
type wsStatusResponse struct {
	Type              string         `json:"type"`
	Running           bool           `json:"running"`
	State             string         `json:"state"`
	DeviceUID         string         `json:"device_uid"`
	DeviceType        string         `json:"device_type"`
	ReferenceDbfs     float64        `json:"reference_dbfs"`
	Floor             float64        `json:"floor"`
	Ceiling           float64        `json:"ceiling"`
	Devices           []audio.Device `json:"devices"`
	SilenceThreshold  float64        `json:"silence_threshold"`
	SilenceDurationMs int64          `json:"silence_duration_ms"`
	SilenceRecoveryMs int64          `json:"silence_recovery_ms"`
	Platform          string         `json:"platform"`
	Version           VersionInfo    `json:"version"`
}

// buildWSStatus returns the current WebSocket status response.
func (s *Server) buildWSStatus() wsStatusResponse {
	devices, err := audio.Enumerate()
	if err != nil {
		slog.Debug("device enumeration failed", "error", err)
		devices = []audio.Device{}
	}

	opts := s.config.CaptureOptions()
	silence := s.config.Silence()

	return wsStatusResponse{
		Type:              "status",
		Running:           s.engine.Running(),
		State:             s.engine.State(),
		DeviceUID:         s.engine.CurrentDeviceUID(),
		DeviceType:        string(opts.DeviceType),
		ReferenceDbfs:     s.engine.EffectiveReferenceDbfs(),
		Floor:             s.engine.Floor(),
		Ceiling:           s.engine.Ceiling(),
		Devices:           devices,
		SilenceThreshold:  silence.Threshold,
		SilenceDurationMs: silence.DurationMs,
		SilenceRecoveryMs: silence.RecoveryMs,
		Platform:          runtime.GOOS,
		Version:           s.version.Info(),
	}
}

// SetupRoutes returns an [http.Handler] configured with all application routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/status", s.handleAPIStatus)
	mux.HandleFunc("/api/devices", s.handleAPIDevices)
	mux.HandleFunc("/api/health", s.handleAPIHealth)
	mux.HandleFunc("/api/version", s.handleAPIVersion)

	return securityHeaders(mux)
}

// securityHeaders returns middleware that wraps handlers with security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start begins the monitor loop and the HTTP server.
// Returns an *http.Server that can be used for graceful shutdown.
func (s *Server) Start() *http.Server {
	go s.runMonitor()

	addr := fmt.Sprintf(":%d", s.config.Port())
	slog.Info("starting web server", "addr", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.SetupRoutes(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	return srv
}

// Stop halts the monitor loop and the version checker.
func (s *Server) Stop() {
	close(s.stopCh)
	s.version.Stop()
}
