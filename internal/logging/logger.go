// Package logging owns the process-wide zap logger. Subsystems derive
// their own scoped logger via Named rather than holding globals.
package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	base  *zap.Logger
	sugar *zap.SugaredLogger
	once  sync.Once
)

// Init builds the global logger: JSON at info level when ENVIRONMENT is
// production, colored console at debug otherwise. LOG_LEVEL overrides the
// level in either mode. Repeated calls are no-ops.
func Init() {
	once.Do(func() {
		var cfg zap.Config
		if os.Getenv("ENVIRONMENT") == "production" {
			cfg = zap.NewProductionConfig()
			cfg.EncoderConfig.TimeKey = "ts"
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		} else {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}

		if raw := os.Getenv("LOG_LEVEL"); raw != "" {
			if lvl, err := zapcore.ParseLevel(raw); err == nil {
				cfg.Level = zap.NewAtomicLevelAt(lvl)
			}
		}

		logger, err := cfg.Build()
		if err != nil {
			logger = zap.NewNop()
		}
		base = logger
		sugar = base.Sugar()
	})
}

// L returns the global structured logger, initializing it on first use
func L() *zap.Logger {
	Init()
	return base
}

// S is the printf-style variant of L
func S() *zap.SugaredLogger {
	Init()
	return sugar
}

// Named derives a subsystem logger ("generator", "llm", "sandbox", ...)
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync flushes buffered entries; call once on shutdown
func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}
