// Package logging builds the zap loggers used across the simulation.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ServiceName = "gravsim"

// Config selects the level, encoding and destination of the logger.
type Config struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level"`
	// Environment is development (console encoding) or production (JSON).
	Environment string `yaml:"environment"`
	// Output lists zap sink URLs or file paths. Empty means stderr.
	Output []string `yaml:"output,omitempty"`
}

func DefaultConfig() Config {
	return Config{Level: "info", Environment: "development"}
}

// New builds a logger with the service name attached.
func New(cfg Config) (*zap.Logger, error) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	dev := cfg.Environment == "development"

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	encoding := "json"
	if dev {
		encoding = "console"
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	out := cfg.Output
	if len(out) == 0 {
		out = []string{"stderr"}
	}

	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(cfg.Level)),
		Development:      dev,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      out,
		ErrorOutputPaths: []string{"stderr"},
	}
	log, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return log.With(
		zap.String("service", ServiceName),
		zap.String("environment", cfg.Environment),
	), nil
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
