/*
logger.go - zap logger construction

PURPOSE:
  Builds the process-wide zap logger from environment configuration.
  Everything that logs takes a *zap.Logger; nothing reaches for a global.

CONFIGURATION:
  LOG_LEVEL   debug | info | warn | error | fatal   (default info)
  LOG_FORMAT  json | console                        (default json)
  LOG_OUTPUT  stdout | stderr | <file path>         (default stdout)
*/
package logger

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var ErrInvalidLevel = errors.New("invalid log level")

// Config holds logger configuration, typically read from the environment.
type Config struct {
	Level  string
	Format string
	Output string
}

// FromEnv reads LOG_LEVEL, LOG_FORMAT and LOG_OUTPUT.
func FromEnv() *Config {
	return &Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
		Output: os.Getenv("LOG_OUTPUT"),
	}
}

// New builds a zap logger from config. A nil config means production
// defaults. The service field tags every entry.
func New(config *Config, service string) (*zap.Logger, error) {
	if config == nil {
		l, err := zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("build production logger: %w", err)
		}
		return l.With(zap.String("service", service)), nil
	}

	var zapConfig zap.Config
	if strings.ToLower(config.Format) == "console" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level, err := parseLevel(config.Level)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	switch config.Output {
	case "", "stdout":
		zapConfig.OutputPaths = []string{"stdout"}
		zapConfig.ErrorOutputPaths = []string{"stderr"}
	case "stderr":
		zapConfig.OutputPaths = []string{"stderr"}
		zapConfig.ErrorOutputPaths = []string{"stderr"}
	default:
		zapConfig.OutputPaths = []string{config.Output}
		zapConfig.ErrorOutputPaths = []string{config.Output}
	}

	l, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l.With(zap.String("service", service)), nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}
}
