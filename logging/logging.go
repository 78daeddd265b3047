// Package logging builds the application's zap logger. The logger is
// constructed once in main and passed to services explicitly; nothing in the
// application logs through a package-level singleton.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a zap logger. levelEnv, when non-empty, overrides the default
// info level (accepted values are zap's: debug, info, warn, error).
func New(levelEnv string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)

	if levelEnv != "" {
		if err := cfg.Level.UnmarshalText([]byte(levelEnv)); err != nil {
			fmt.Printf("bad LOG_LEVEL=%s, fallback to info\n", levelEnv)
		}
	}
	return cfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

// Must is New, panicking on error. Intended for main.
func Must(levelEnv string) *zap.Logger {
	l, err := New(levelEnv)
	if err != nil {
		panic(err)
	}
	return l
}
