package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", FormatDuration(999))
	assert.Equal(t, "45s", FormatDuration(45_000))
	assert.Equal(t, "2m 34s", FormatDuration(154_000))
	assert.Equal(t, "1h 23m", FormatDuration(4_980_000))
}

func TestFormatHumanTime(t *testing.T) {
	assert.Equal(t, "unknown", FormatHumanTime(""))
	assert.Equal(t, "unknown", FormatHumanTime("unknown"))
	assert.Equal(t, "not-a-time", FormatHumanTime("not-a-time"))
	assert.NotEmpty(t, FormatHumanTime("2026-08-27T12:00:00Z"))
}
