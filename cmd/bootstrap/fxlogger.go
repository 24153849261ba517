package bootstrap

import (
	"log/slog"

	"go.uber.org/fx/fxevent"
)

// NewFxLogger routes fx's own lifecycle events through slog at debug level.
func NewFxLogger(logger *slog.Logger) fxevent.Logger {
	l := &fxevent.SlogLogger{Logger: logger}
	l.UseLogLevel(slog.LevelDebug)
	return l
}
