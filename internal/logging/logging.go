// Package logging builds the slog loggers the life commands install with
// life.SetLogger.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"
)

// New returns a slog.Logger writing human-readable lines to w through a
// charmbracelet/log handler. Unknown levels fall back to info.
func New(w io.Writer, prefix, level string) *slog.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	h := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          prefix,
		Level:           lvl,
	})
	return slog.New(h)
}
