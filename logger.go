package life

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/life/gpucore"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

// live holds the open simulations, keyed by *Simulation, so SetLogger can
// reach their adapters.
var live sync.Map

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for life and its backends.
// By default, life produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by life:
//   - [slog.LevelDebug]: resource creation, dispatch sizes, submissions
//   - [slog.LevelInfo]: lifecycle events (simulation created, closed, reset)
//   - [slog.LevelWarn]: skipped frames, resource release errors
//
// Example:
//
//	life.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	live.Range(func(key, _ any) bool {
		propagateLogger(key.(*Simulation).adapter, l)
		return true
	})
}

// Logger returns the current logger used by life.
// Host programs and backends call this to share the same logger
// configuration.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by adapters that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the logger to an adapter if it implements
// the loggerSetter interface. Called from both SetLogger and New so that
// every adapter in use has the current logger.
func propagateLogger(a gpucore.GPUAdapter, l *slog.Logger) {
	if ls, ok := a.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
