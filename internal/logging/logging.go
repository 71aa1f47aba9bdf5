package logging

import (
	"io"
	"log/slog"
	"os"
)

// Init installs the default slog logger. LOG_LEVEL picks the level and
// LOG_FILE, when set, moves output off the terminal the dashboard draws on.
func Init() {
	var out io.Writer = os.Stderr
	if path, ok := os.LookupEnv("LOG_FILE"); ok && path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			out = f
		}
	}

	level := slog.LevelError // default: production only shows errors
	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		level = ParseLevel(l)
	}

	slog.SetDefault(New(out, level))
}

// New builds a text logger writing to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(
		slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		}),
	)
}

func ParseLevel(l string) slog.Level {
	switch l {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
