package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/analogvu/vumeter/internal/audio"
	"github.com/analogvu/vumeter/internal/util"
)

// API response helpers

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// apiStatusResponse is the GET /api/status payload.
type apiStatusResponse struct {
	Running       bool         `json:"running"`
	State         string       `json:"state"`
	DeviceUID     string       `json:"device_uid"`
	DeviceType    string       `json:"device_type"`
	ReferenceDbfs float64      `json:"reference_dbfs"`
	Levels        audio.Levels `json:"levels"`
	Uptime        string       `json:"uptime"`
	Platform      string       `json:"platform"`
}

// handleAPIStatus returns the capture state and latest meter values.
// GET /api/status
func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	opts := s.config.CaptureOptions()

	s.writeJSON(w, http.StatusOK, apiStatusResponse{
		Running:       s.engine.Running(),
		State:         s.engine.State(),
		DeviceUID:     s.engine.CurrentDeviceUID(),
		DeviceType:    string(opts.DeviceType),
		ReferenceDbfs: s.engine.EffectiveReferenceDbfs(),
		Levels:        s.currentLevels(),
		Uptime:        util.FormatDuration(time.Since(s.startedAt).Milliseconds()),
		Platform:      runtime.GOOS,
	})
}

// handleAPIDevices returns available capture devices.
// GET /api/devices
func (s *Server) handleAPIDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	devices, err := audio.Enumerate()
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"devices": devices})
}

// handleAPIHealth reports liveness. Capture failures do not make the
// process unhealthy; a meter resting at the floor is still serving.
// GET /api/health
func (s *Server) handleAPIHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"running": s.engine.Running(),
	})
}

// handleAPIVersion returns build and update information.
// GET /api/version
func (s *Server) handleAPIVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, s.version.Info())
}
