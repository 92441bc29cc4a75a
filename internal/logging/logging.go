// Package logging builds the zap loggers handed to each client's Config.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON production logger for env "production" (or "prod"), a
// no-op logger for "nop", and a colored development logger otherwise.
func New(env string) (*zap.Logger, error) {
	var config zap.Config

	switch strings.ToLower(env) {
	case "production", "prod":
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "nop":
		return zap.NewNop(), nil
	default:
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return config.Build()
}

// Level reports the minimum enabled level of l.
func Level(l *zap.Logger) zapcore.Level {
	return zapcore.LevelOf(l.Core())
}
