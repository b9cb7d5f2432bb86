package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKeyRewritten(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(handler(&buf, slog.LevelDebug))

	logger.Info("call failed", "error", "boom")

	assert.Contains(t, buf.String(), "err=boom")
	assert.NotContains(t, buf.String(), "error=boom")
}

func TestPropertyIDMasked(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(handler(&buf, slog.LevelDebug))

	logger.Info("guides listed", "property_id", "01234567890123")

	assert.Contains(t, buf.String(), "property_id=**********0123")
	assert.NotContains(t, buf.String(), "01234567890123")
}

func TestMaskPropertyID(t *testing.T) {
	assert.Equal(t, "****5678", maskPropertyID("12345678"))
	assert.Equal(t, "1234", maskPropertyID("1234"))
	assert.Equal(t, "", maskPropertyID(""))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(handler(&buf, slog.LevelWarn))

	logger.Debug("hidden")
	logger.Warn("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}
