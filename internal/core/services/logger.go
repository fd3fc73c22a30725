package services

import (
	"io"
	"log/slog"
)

func componentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return logger.With("component", component)
}
