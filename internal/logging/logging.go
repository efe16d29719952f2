// Package logging builds the process-wide zap logger from configuration.
package logging

import (
	"fmt"

	"github.com/Cyclone1070/kosuke/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger for cfg. When outputPaths is empty logs go to stderr.
// The interactive terminal view passes a file path so log lines do not
// interleave with the rendered progress.
func New(cfg config.LogConfig, outputPaths ...string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	if len(outputPaths) > 0 {
		zcfg.OutputPaths = outputPaths
		zcfg.ErrorOutputPaths = outputPaths
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
