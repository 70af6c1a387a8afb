// Package lakolog provides a default structured logger and the Or helper
// for choosing between a caller's *slog.Logger and that default. No other
// package of this module imports it. It mirrors the teacher's pkg/logging:
// a tint-colourized slog.Handler on stderr.
package lakolog

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Default is the package-level fallback logger, used by components that
// were not handed an explicit *slog.Logger.
var Default = New(slog.LevelInfo)

// New builds a tint-backed slog.Logger writing to stderr at the given level.
func New(level slog.Level) *slog.Logger {
	h := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
	return slog.New(h)
}

// Or returns logger if non-nil, else Default.
func Or(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return Default
	}
	return logger
}
