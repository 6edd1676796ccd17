package logger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atlekbai/statemech/internal/logger"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, logger.ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, logger.ParseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, logger.ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, logger.ParseLevel("verbose"))
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, logger.FormatJSON, logger.ParseFormat("json"))
	assert.Equal(t, logger.FormatConsole, logger.ParseFormat("console"))
	assert.Equal(t, logger.FormatConsole, logger.ParseFormat(""))
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("warn", "json", &buf)

	log.Info("dropped")
	log.Warn("no transition found", zap.String("event", "toggle"))
	require.NoError(t, log.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "no transition found", entry["msg"])
	assert.Equal(t, "toggle", entry["event"])
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("debug", "console", &buf)

	log.Named("machine").Debug("transition finished")
	require.NoError(t, log.Sync())

	out := buf.String()
	assert.Contains(t, out, " | machine | ")
	assert.Contains(t, out, "transition finished")
}
