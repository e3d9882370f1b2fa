// Package logger builds the process-wide zap logger from LoggerConfig.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/importfull/inventory-api/internal/config"
)

// New returns a zap logger configured for the given environment.  "prod"
// and "production" start from zap's production preset; anything else uses
// the development preset so local output stays readable.
func New(env string, cfg config.LoggerConfig) (*zap.Logger, error) {
	var zc zap.Config
	switch strings.ToLower(env) {
	case "prod", "production":
		zc = zap.NewProductionConfig()
	default:
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logger: level %q: %w", cfg.Level, err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	switch cfg.Encoding {
	case "json", "console":
		zc.Encoding = cfg.Encoding
	case "":
	default:
		return nil, fmt.Errorf("logger: unsupported encoding %q", cfg.Encoding)
	}
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableCaller = cfg.DisableCaller
	zc.DisableStacktrace = cfg.DisableStacktrace

	return zc.Build()
}
