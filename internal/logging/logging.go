// Package logging builds the zap loggers used by the CLI and server.
package logging

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hanpama/plugraph/internal/reqid"
)

// New returns a logger for env ("development", "test" or "production") at
// level. An empty level keeps the environment's default.
func New(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "development", "test":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "production", "":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("invalid log environment %q (must be development, test or production)", env)
	}
	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	// the CLI prints schemas on stdout
	cfg.OutputPaths = []string{"stderr"}
	log, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}

// FromContext returns log with the request ID of ctx attached, if any.
func FromContext(ctx context.Context, log *zap.Logger) *zap.Logger {
	if id, ok := reqid.FromContext(ctx); ok {
		return log.With(zap.String("request_id", id))
	}
	return log
}
