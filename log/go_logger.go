package log

import (
	"fmt"
	"log"
	"strings"
)

// controlCharReplacer escapes control characters that could be abused for log
// injection (CWE-117). Embedded newlines or tabs in attacker-controlled values
// can forge log entries and mislead incident response.
var controlCharReplacer = strings.NewReplacer(
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func sanitizeString(s string) string {
	return controlCharReplacer.Replace(s)
}

// sanitizeArgs escapes control characters in all string-typed arguments.
// Non-string arguments pass through unchanged.
func sanitizeArgs(args []any) []any {
	sanitized := make([]any, len(args))
	for i, arg := range args {
		if s, ok := arg.(string); ok {
			sanitized[i] = sanitizeString(s)
		} else {
			sanitized[i] = arg
		}
	}

	return sanitized
}

// GoLogger is the stdlib (log) implementation of Logger.
//
// All string arguments are sanitized against log injection.
type GoLogger struct {
	Level  LogLevel
	fields []any
}

// IsLevelEnabled reports whether the given level is enabled on this logger.
func (l *GoLogger) IsLevelEnabled(level LogLevel) bool {
	if l == nil {
		return false
	}

	return l.Level >= level
}

// Info implements the Logger interface.
func (l *GoLogger) Info(args ...any) {
	l.print(InfoLevel, args...)
}

// Infof implements the Logger interface.
func (l *GoLogger) Infof(format string, args ...any) {
	l.printf(InfoLevel, format, args...)
}

// Warn implements the Logger interface.
func (l *GoLogger) Warn(args ...any) {
	l.print(WarnLevel, args...)
}

// Warnf implements the Logger interface.
func (l *GoLogger) Warnf(format string, args ...any) {
	l.printf(WarnLevel, format, args...)
}

// Error implements the Logger interface.
func (l *GoLogger) Error(args ...any) {
	l.print(ErrorLevel, args...)
}

// Errorf implements the Logger interface.
func (l *GoLogger) Errorf(format string, args ...any) {
	l.printf(ErrorLevel, format, args...)
}

// Debug implements the Logger interface.
func (l *GoLogger) Debug(args ...any) {
	l.print(DebugLevel, args...)
}

// Debugf implements the Logger interface.
func (l *GoLogger) Debugf(format string, args ...any) {
	l.printf(DebugLevel, format, args...)
}

// Fatal implements the Logger interface.
func (l *GoLogger) Fatal(args ...any) {
	if l.IsLevelEnabled(FatalLevel) {
		log.Fatal(l.hydrate(FatalLevel, args...))
	}
}

// Fatalf implements the Logger interface.
func (l *GoLogger) Fatalf(format string, args ...any) {
	if l.IsLevelEnabled(FatalLevel) {
		log.Fatal(l.hydrate(FatalLevel, fmt.Sprintf(sanitizeString(format), args...)))
	}
}

// WithFields implements the Logger interface.
//
//nolint:ireturn
func (l *GoLogger) WithFields(fields ...any) Logger {
	if l == nil {
		return &GoLogger{}
	}

	merged := make([]any, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)

	return &GoLogger{
		Level:  l.Level,
		fields: merged,
	}
}

func (l *GoLogger) print(level LogLevel, args ...any) {
	if l.IsLevelEnabled(level) {
		log.Print(l.hydrate(level, args...))
	}
}

func (l *GoLogger) printf(level LogLevel, format string, args ...any) {
	if l.IsLevelEnabled(level) {
		log.Print(l.hydrate(level, fmt.Sprintf(sanitizeString(format), args...)))
	}
}

func (l *GoLogger) hydrate(level LogLevel, args ...any) string {
	message := fmt.Sprint(sanitizeArgs(args)...)

	if l == nil {
		return message
	}

	parts := make([]string, 0, 3)
	parts = append(parts, fmt.Sprintf("[%s]", level.String()))

	if fields := l.hydrateFields(); fields != "" {
		parts = append(parts, fields)
	}

	parts = append(parts, message)

	return strings.Join(parts, " ")
}

func (l *GoLogger) hydrateFields() string {
	if len(l.fields) == 0 {
		return ""
	}

	pairs := make([]string, 0, (len(l.fields)+1)/2)

	for i := 0; i < len(l.fields); i += 2 {
		key := fmt.Sprint(l.fields[i])

		value := "<missing>"
		if i+1 < len(l.fields) {
			value = sanitizeString(fmt.Sprint(l.fields[i+1]))
		}

		pairs = append(pairs, fmt.Sprintf("%s=%s", sanitizeString(key), value))
	}

	return strings.Join(pairs, " ")
}
