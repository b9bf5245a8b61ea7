// Package logging builds the zap.Logger every other package receives by
// injection, the way the teacher's server packages construct their own
// loggers in NewXxxServer rather than relying on a global.
package logging

import "go.uber.org/zap"

// New builds a zap logger. level is one of zap's recognized strings
// ("debug", "info", "warn", "error"); format selects "console" or
// "json" encoding.
func New(level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	var zapLevel zap.AtomicLevel
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Level = zapLevel

	return cfg.Build()
}
