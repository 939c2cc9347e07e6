package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(NewCLIHandler(&buf, level)), &buf
}

func TestNewCLILogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			logger := NewCLILogger(level)
			require.NotNil(t, logger)
			logger.Info("scoring runs")
		})
	}
}

func TestCLIHandler_Colors(t *testing.T) {
	tests := []struct {
		name  string
		log   func(*slog.Logger)
		color string
	}{
		{"info", func(l *slog.Logger) { l.Info("ensemble imported") }, colorGreen},
		{"warn", func(l *slog.Logger) { l.Warn("keychain unavailable") }, colorYellow},
		{"error", func(l *slog.Logger) { l.Error("scoring failed") }, colorRed},
		{"debug", func(l *slog.Logger) { l.Debug("column likelihood") }, colorGray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newTestLogger(slog.LevelDebug)
			tt.log(logger)
			assert.Contains(t, buf.String(), tt.color)
			assert.Contains(t, buf.String(), colorReset)
		})
	}
}

func TestCLIHandler_Plain(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelInfo).Plain())

	logger.Error("scoring failed", "criterion", "gmst")
	assert.Equal(t, "scoring failed: criterion=gmst\n", buf.String())
}

func TestCLIHandler_LevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		level     slog.Level
		log       func(*slog.Logger)
		shouldLog bool
	}{
		{"info handler logs info", slog.LevelInfo, func(l *slog.Logger) { l.Info("test") }, true},
		{"info handler filters debug", slog.LevelInfo, func(l *slog.Logger) { l.Debug("test") }, false},
		{"debug handler logs debug", slog.LevelDebug, func(l *slog.Logger) { l.Debug("test") }, true},
		{"error handler filters warn", slog.LevelError, func(l *slog.Logger) { l.Warn("test") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newTestLogger(tt.level)
			tt.log(logger)
			assert.Equal(t, tt.shouldLog, buf.Len() > 0)
		})
	}
}

func TestCLIHandler_Attributes(t *testing.T) {
	logger, buf := newTestLogger(slog.LevelInfo)

	logger.Info("ensemble imported", "runs", 30, "name", "hector")

	out := buf.String()
	assert.Contains(t, out, "ensemble imported: runs=30 name=hector")
}

func TestCLIHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := NewCLIHandler(&buf, slog.LevelInfo)

	assert.Equal(t, handler, handler.WithAttrs(nil))

	logger := slog.New(handler).With("ensemble", "hector")
	logger.Info("scored", "method", "ramp")
	assert.Contains(t, buf.String(), "scored: ensemble=hector method=ramp")

	buf.Reset()
	slog.New(handler).Info("unscoped")
	assert.NotContains(t, buf.String(), "ensemble=hector")
}

func TestCLIHandler_WithGroup(t *testing.T) {
	logger, buf := newTestLogger(slog.LevelInfo)

	logger.WithGroup("server").Info("listening")
	assert.Contains(t, buf.String(), "[server] listening")

	buf.Reset()
	logger.WithGroup("").Info("no prefix")
	assert.NotContains(t, buf.String(), "]")
}

func TestSetDefaultCLILogger(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	SetDefaultCLILogger("debug")
	require.NotNil(t, slog.Default())
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"  debug  ", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.input))
		})
	}
}
