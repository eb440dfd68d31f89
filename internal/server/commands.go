package server

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/analogvu/vumeter/internal/audio"
	"github.com/analogvu/vumeter/internal/config"
)

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CommandHandler processes WebSocket commands.
type CommandHandler struct {
	cfg    *config.Config
	engine *audio.Engine
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(cfg *config.Config, engine *audio.Engine) *CommandHandler {
	return &CommandHandler{cfg: cfg, engine: engine}
}

// Handle processes a WebSocket command and performs the requested action.
// Commands use slash-style format: namespace/action (e.g., "audio/switch")
func (h *CommandHandler) Handle(cmd WSCommand, send chan<- any, triggerStatusUpdate func()) {
	parts := strings.SplitN(cmd.Type, "/", 2)
	namespace := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch namespace {
	case "audio":
		h.handleAudio(action, cmd, send)
	case "reference":
		h.handleReference(action, cmd, send)
	case "silence":
		h.handleSilence(action, cmd, send)
	case "status":
		h.handleStatus(action)
	default:
		slog.Warn("unknown WebSocket command", "type", cmd.Type)
	}

	triggerStatusUpdate()
}

// handleAudio routes audio/* commands
func (h *CommandHandler) handleAudio(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "switch":
		h.handleSwitchDevice(cmd, send)
	case "devices":
		h.handleListDevices(cmd, send)
	default:
		slog.Warn("unknown audio action", "action", action)
	}
}

// handleReference routes reference/* commands
func (h *CommandHandler) handleReference(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		h.handleReferenceUpdate(cmd, send)
	case "get":
		SendSuccess(send, cmd.Type, map[string]any{
			"dbfs": h.engine.EffectiveReferenceDbfs(),
		})
	default:
		slog.Warn("unknown reference action", "action", action)
	}
}

// handleSilence routes silence/* commands
func (h *CommandHandler) handleSilence(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		h.handleSilenceUpdate(cmd, send)
	case "get":
		SendSuccess(send, cmd.Type, h.cfg.Silence())
	default:
		slog.Warn("unknown silence action", "action", action)
	}
}

// handleStatus routes status/* commands
func (h *CommandHandler) handleStatus(action string) {
	switch action {
	case "get":
		// Status is sent automatically, but explicit get triggers immediate update
		slog.Debug("status/get received, status update will be triggered")
	default:
		slog.Warn("unknown status action", "action", action)
	}
}

// handleSwitchDevice moves capture to a different device. On failure
// the previous selection is restored by the engine, so a failed switch
// never leaves the meter without a device to return to.
func (h *CommandHandler) handleSwitchDevice(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *SwitchDeviceRequest) error {
		if err := h.engine.SwitchDevice(req.UID); err != nil {
			return err
		}
		h.cfg.SetDevice(req.UID)
		if err := h.cfg.Save(); err != nil {
			slog.Warn("failed to persist device selection", "error", err)
		}
		return nil
	})
}

// handleListDevices enumerates capture devices on demand.
func (h *CommandHandler) handleListDevices(cmd WSCommand, send chan<- any) {
	devices, err := audio.Enumerate()
	if err != nil {
		SendError(send, cmd.Type, err)
		return
	}
	SendSuccess(send, cmd.Type, map[string]any{"devices": devices})
}

// handleReferenceUpdate pins the 0 VU reference level.
func (h *CommandHandler) handleReferenceUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *ReferenceUpdateRequest) error {
		h.engine.SetReferenceDbfs(req.Dbfs)
		h.cfg.SetReference(req.Dbfs)
		if err := h.cfg.Save(); err != nil {
			slog.Warn("failed to persist reference level", "error", err)
		}
		return nil
	})
}

// handleSilenceUpdate adjusts silence detection settings.
func (h *CommandHandler) handleSilenceUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *SilenceUpdateRequest) error {
		h.cfg.UpdateSilence(req.Threshold, req.DurationMs, req.RecoveryMs)
		if err := h.cfg.Save(); err != nil {
			slog.Warn("failed to persist silence settings", "error", err)
		}
		return nil
	})
}
