package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/paveg/dispatch/internal/config"
	"github.com/paveg/dispatch/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("text format hides debug by default", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.New(&buf, config.NewConfig())

		logger.Debug("hidden")
		logger.Info("round complete", "round", 3)

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "msg=\"round complete\"")
		assert.Contains(t, out, "round=3")
	})

	t.Run("json format with verbose logging", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := config.NewConfig()
		cfg.LogFormat = config.LogFormatJSON
		cfg.VerboseLogging = true
		logger := logging.New(&buf, cfg)

		logger.Debug("pool started", "workers", 4)

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "DEBUG", record["level"])
		assert.Equal(t, "pool started", record["msg"])
		assert.InDelta(t, 4, record["workers"], 0)
	})
}

func TestLevel(t *testing.T) {
	cfg := config.NewConfig()
	assert.Equal(t, slog.LevelInfo, logging.Level(cfg))

	cfg.VerboseLogging = true
	assert.Equal(t, slog.LevelDebug, logging.Level(cfg))
}

func TestDiscard(t *testing.T) {
	logger := logging.Discard()
	assert.False(t, logger.Enabled(t.Context(), slog.LevelError))
}
