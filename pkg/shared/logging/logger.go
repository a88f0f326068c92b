package logging

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process-wide logr.Logger every agent is handed
// at wiring time. zap does the actual encoding; zapr adapts it to the
// logr.Logger interface the rest of the module depends on, so no
// package outside this one imports zap directly.
func NewLogger(level, format string) (logr.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(levelOrDefault(level))); err != nil {
		return logr.Logger{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if format == "console" {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapLog, err := cfg.Build()
	if err != nil {
		return logr.Logger{}, fmt.Errorf("failed to build zap logger: %w", err)
	}
	return zapr.NewLogger(zapLog), nil
}

func levelOrDefault(level string) string {
	if level == "" {
		return "info"
	}
	return level
}
