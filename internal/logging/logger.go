package logging

import (
	"log/slog"
	"os"
)

// SetupLogger installs the process-wide slog logger. Diagnostics go to
// standard error as text; the default level is Warn so a production helper
// emits nothing on the happy path. Must be called only after the environment
// has been sanitised.
func SetupLogger(runID string, level slog.Level) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler).With("run_id", runID))
}
