package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestLogger_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	l, err := NewLogger(path)
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	require.NoError(t, l.LogCaptureError("stream stopped"))
	require.NoError(t, l.LogDeviceChanged("alsa_output.pci.analog-stereo.monitor"))
	require.NoError(t, l.LogSilenceStart(-22, -22, -20))
	require.NoError(t, l.LogSilenceEnd(12000, -4, -5, -20))

	events := readEvents(t, path)
	require.Len(t, events, 4)

	assert.Equal(t, CaptureError, events[0].Type)
	assert.Equal(t, "stream stopped", events[0].Message)
	assert.False(t, events[0].Timestamp.IsZero())

	assert.Equal(t, DeviceChanged, events[1].Type)
	assert.Equal(t, SilenceStart, events[2].Type)
	assert.Equal(t, SilenceEnd, events[3].Type)
}

func TestLogger_AppendsAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	l, err := NewLogger(path)
	require.NoError(t, err)
	require.NoError(t, l.LogCaptureError("first"))
	require.NoError(t, l.Close())

	l, err = NewLogger(path)
	require.NoError(t, err)
	require.NoError(t, l.LogCaptureError("second"))
	require.NoError(t, l.Close())

	assert.Len(t, readEvents(t, path), 2)
}

func TestLogger_NilReceiverIsSafe(t *testing.T) {
	var l *Logger
	assert.NoError(t, l.Log(&Event{Type: CaptureError}))
	assert.NoError(t, l.LogCaptureError("ignored"))
	assert.NoError(t, l.LogDeviceChanged("ignored"))
	assert.NoError(t, l.Close())
}

func TestLogger_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "events.jsonl")
	l, err := NewLogger(path)
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	require.NoError(t, l.LogCaptureError("hello"))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
