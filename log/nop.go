package log

// NopLogger discards every log entry. Useful for tests and for components
// where logging is optional.
type NopLogger struct{}

// NewNop creates a no-op logger.
//
//nolint:ireturn
func NewNop() Logger {
	return &NopLogger{}
}

func (l *NopLogger) Info(args ...any)                  {}
func (l *NopLogger) Infof(format string, args ...any)  {}
func (l *NopLogger) Warn(args ...any)                  {}
func (l *NopLogger) Warnf(format string, args ...any)  {}
func (l *NopLogger) Error(args ...any)                 {}
func (l *NopLogger) Errorf(format string, args ...any) {}
func (l *NopLogger) Debug(args ...any)                 {}
func (l *NopLogger) Debugf(format string, args ...any) {}
func (l *NopLogger) Fatal(args ...any)                 {}
func (l *NopLogger) Fatalf(format string, args ...any) {}

// WithFields returns the same no-op logger.
//
//nolint:ireturn
func (l *NopLogger) WithFields(fields ...any) Logger {
	return l
}
