package server

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/analogvu/vumeter/internal/audio"
	"github.com/analogvu/vumeter/internal/config"
	"github.com/analogvu/vumeter/internal/vu"
)

func newTestHandler(t *testing.T) (*CommandHandler, *config.Config, *audio.Engine) {
	t.Helper()
	cfg := config.New(filepath.Join(t.TempDir(), "config.json"))
	engine := audio.NewEngine(cfg.CaptureOptions(), vu.Calibration{})
	t.Cleanup(engine.Close)
	return NewCommandHandler(cfg, engine), cfg, engine
}

func command(t *testing.T, cmdType string, data any) WSCommand {
	t.Helper()
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		require.NoError(t, err)
		raw = b
	}
	return WSCommand{Type: cmdType, Data: raw}
}

// drain collects all queued responses.
func drain(send chan any) []map[string]any {
	var out []map[string]any
	for {
		select {
		case msg := <-send:
			b, _ := json.Marshal(msg)
			var m map[string]any
			_ = json.Unmarshal(b, &m)
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestCommandHandler_ReferenceUpdate(t *testing.T) {
	h, cfg, engine := newTestHandler(t)
	send := make(chan any, 4)

	h.Handle(command(t, "reference/update", ReferenceUpdateRequest{Dbfs: -14}), send, func() {})

	responses := drain(send)
	require.Len(t, responses, 1)
	assert.Equal(t, "reference/update_result", responses[0]["type"])
	assert.Equal(t, true, responses[0]["success"])

	assert.InDelta(t, -14.0, engine.EffectiveReferenceDbfs(), 1e-12)
	opts := cfg.CaptureOptions()
	assert.True(t, opts.ReferenceOverride)
	assert.InDelta(t, -14.0, opts.ReferenceDbfs, 1e-12)
}

func TestCommandHandler_ReferenceUpdateRejectsOutOfRange(t *testing.T) {
	h, _, engine := newTestHandler(t)
	send := make(chan any, 4)

	before := engine.EffectiveReferenceDbfs()
	h.Handle(command(t, "reference/update", ReferenceUpdateRequest{Dbfs: 40}), send, func() {})

	responses := drain(send)
	require.Len(t, responses, 1)
	assert.Equal(t, false, responses[0]["success"])
	assert.InDelta(t, before, engine.EffectiveReferenceDbfs(), 1e-12, "failed update must not change the reference")
}

func TestCommandHandler_SilenceUpdatePartial(t *testing.T) {
	h, cfg, _ := newTestHandler(t)
	send := make(chan any, 4)

	threshold := -12.5
	h.Handle(command(t, "silence/update", SilenceUpdateRequest{Threshold: &threshold}), send, func() {})

	responses := drain(send)
	require.Len(t, responses, 1)
	assert.Equal(t, true, responses[0]["success"])

	s := cfg.Silence()
	assert.InDelta(t, -12.5, s.Threshold, 1e-12)
	assert.Equal(t, int64(config.DefaultSilenceDuration), s.DurationMs, "unset fields keep their values")
}

func TestCommandHandler_SilenceGet(t *testing.T) {
	h, _, _ := newTestHandler(t)
	send := make(chan any, 4)

	h.Handle(command(t, "silence/get", nil), send, func() {})

	responses := drain(send)
	require.Len(t, responses, 1)
	assert.Equal(t, true, responses[0]["success"])
	assert.Contains(t, responses[0], "data")
}

func TestCommandHandler_InvalidJSON(t *testing.T) {
	h, _, _ := newTestHandler(t)
	send := make(chan any, 4)

	h.Handle(WSCommand{Type: "reference/update", Data: json.RawMessage(`{"dbfs":`)}, send, func() {})

	responses := drain(send)
	require.Len(t, responses, 1)
	assert.Equal(t, false, responses[0]["success"])
}

func TestCommandHandler_UnknownCommandIsIgnored(t *testing.T) {
	h, _, _ := newTestHandler(t)
	send := make(chan any, 4)

	triggered := false
	h.Handle(command(t, "teleport/engage", nil), send, func() { triggered = true })

	assert.Empty(t, drain(send), "unknown commands produce no response")
	assert.True(t, triggered, "status refresh still runs")
}
