package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment selects the baseline zap profile.
type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentLocal      Environment = "local"
)

// ZapConfig holds the inputs required to build a ZapLogger.
type ZapConfig struct {
	Environment Environment
	Level       string
}

func (c ZapConfig) validate() error {
	switch c.Environment {
	case EnvironmentProduction, EnvironmentStaging, EnvironmentLocal:
		return nil
	default:
		return fmt.Errorf("invalid environment %q", c.Environment)
	}
}

// ZapLogger is the zap-backed implementation of Logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger builds a structured logger for the given environment. The
// production and staging profiles emit JSON; the local profile uses the
// console encoder with colored levels.
func NewZapLogger(cfg ZapConfig) (*ZapLogger, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid zap config: %w", err)
	}

	base := zap.NewProductionConfig()
	if cfg.Environment == EnvironmentLocal {
		base = zap.NewDevelopmentConfig()
		base.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	base.DisableStacktrace = true

	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}

		base.Level = zap.NewAtomicLevelAt(parsed)
	}

	logger, err := base.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}

	return &ZapLogger{sugar: logger.Sugar()}, nil
}

// NewZapLoggerFrom wraps an existing zap logger.
func NewZapLoggerFrom(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: logger.Sugar()}
}

func (l *ZapLogger) Info(args ...any)                  { l.sugar.Info(args...) }
func (l *ZapLogger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *ZapLogger) Warn(args ...any)                  { l.sugar.Warn(args...) }
func (l *ZapLogger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *ZapLogger) Error(args ...any)                 { l.sugar.Error(args...) }
func (l *ZapLogger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }
func (l *ZapLogger) Debug(args ...any)                 { l.sugar.Debug(args...) }
func (l *ZapLogger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *ZapLogger) Fatal(args ...any)                 { l.sugar.Fatal(args...) }
func (l *ZapLogger) Fatalf(format string, args ...any) { l.sugar.Fatalf(format, args...) }

// WithFields implements the Logger interface.
//
//nolint:ireturn
func (l *ZapLogger) WithFields(fields ...any) Logger {
	return &ZapLogger{sugar: l.sugar.With(fields...)}
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}
