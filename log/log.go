package log

import (
	"fmt"
	"strings"
)

// Logger is the logging contract consumed across lib-core.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Debug(args ...any)
	Debugf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)

	// WithFields returns a child logger carrying additional key/value pairs.
	WithFields(fields ...any) Logger
}

// LogLevel represents the verbosity ceiling of a logger. Higher values are
// chattier: a logger at InfoLevel emits fatal, error, warn and info entries
// and suppresses debug.
type LogLevel uint8

const (
	FatalLevel LogLevel = iota
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

// String returns the lowercase name of the level.
func (level LogLevel) String() string {
	switch level {
	case FatalLevel:
		return "fatal"
	case ErrorLevel:
		return "error"
	case WarnLevel:
		return "warn"
	case InfoLevel:
		return "info"
	case DebugLevel:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a textual level into a LogLevel constant.
func ParseLevel(lvl string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "fatal":
		return FatalLevel, nil
	case "error":
		return ErrorLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "info":
		return InfoLevel, nil
	case "debug":
		return DebugLevel, nil
	}

	var level LogLevel

	return level, fmt.Errorf("not a valid LogLevel: %q", lvl)
}
