package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs a text slog handler on stdout as the default logger.
func Setup(debug bool) *slog.Logger {
	logger := New(os.Stdout, debug)
	slog.SetDefault(logger)
	return logger
}

func New(w io.Writer, debug bool) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level(debug),
	}))
}

func level(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
