// Package logger builds the service's slog logger on top of zap.
package logger

import (
	"fmt"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"

	"adjudicator/internal/platform/config"
)

// New returns a slog logger backed by zap and a flush func for shutdown.
// Format "console" selects zap's development encoder; anything else is JSON.
func New(cfg config.Log) (*slog.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	z, err := zc.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build zap logger: %w", err)
	}
	handler := zapslog.NewHandler(z.Core(), zapslog.WithCaller(true))
	return slog.New(handler), func() { _ = z.Sync() }, nil
}

// NewWithCore wraps an existing zap core. Tests use zaptest/observer cores.
func NewWithCore(core zapcore.Core) *slog.Logger {
	return slog.New(zapslog.NewHandler(core))
}
