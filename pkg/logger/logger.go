package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig controls logger construction.
type LoggerConfig struct {
	// Debug enables debug-level output and development formatting
	Debug bool
}

// NewLogger creates a zap logger configured for the service. Callers
// should defer logger.Sync() on shutdown.
func NewLogger(cfg *LoggerConfig) (*zap.Logger, error) {
	if cfg == nil {
		cfg = &LoggerConfig{}
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Debug {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return zapCfg.Build()
}

// NewNopLogger returns a logger that discards everything, for tests
// and optional-logger defaults.
func NewNopLogger() *zap.Logger {
	return zap.NewNop()
}
