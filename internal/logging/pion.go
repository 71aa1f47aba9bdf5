package logging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pion/logging"
)

// levelTrace sits below slog's debug level so pion trace output stays quiet
// unless a handler is configured for it explicitly.
const levelTrace = slog.LevelDebug - 4

// PionFactory routes pion's internal loggers into slog.
type PionFactory struct {
	Logger *slog.Logger
}

func NewPionFactory(logger *slog.Logger) *PionFactory {
	return &PionFactory{Logger: logger}
}

func (f *PionFactory) NewLogger(scope string) logging.LeveledLogger {
	base := f.Logger
	if base == nil {
		base = slog.Default()
	}
	return &pionLogger{logger: base.With("scope", "pion/"+scope)}
}

type pionLogger struct {
	logger *slog.Logger
}

func (l *pionLogger) log(level slog.Level, msg string) {
	l.logger.Log(context.Background(), level, msg)
}

func (l *pionLogger) Trace(msg string) { l.log(levelTrace, msg) }
func (l *pionLogger) Tracef(format string, args ...any) {
	l.log(levelTrace, fmt.Sprintf(format, args...))
}
func (l *pionLogger) Debug(msg string) { l.log(slog.LevelDebug, msg) }
func (l *pionLogger) Debugf(format string, args ...any) {
	l.log(slog.LevelDebug, fmt.Sprintf(format, args...))
}
func (l *pionLogger) Info(msg string) { l.log(slog.LevelInfo, msg) }
func (l *pionLogger) Infof(format string, args ...any) {
	l.log(slog.LevelInfo, fmt.Sprintf(format, args...))
}
func (l *pionLogger) Warn(msg string) { l.log(slog.LevelWarn, msg) }
func (l *pionLogger) Warnf(format string, args ...any) {
	l.log(slog.LevelWarn, fmt.Sprintf(format, args...))
}
func (l *pionLogger) Error(msg string) { l.log(slog.LevelError, msg) }
func (l *pionLogger) Errorf(format string, args ...any) {
	l.log(slog.LevelError, fmt.Sprintf(format, args...))
}
