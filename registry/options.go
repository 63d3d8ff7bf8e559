package registry

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/finrocmirror/finroc-plugins-structure/metric"
)

// AbortExitCode is the process exit status used by DefaultFatalHandler.
const AbortExitCode = 134

// FatalHandler is invoked when an auto-named port cannot find its parent.
// It is expected not to return.
type FatalHandler func(err error)

// DefaultFatalHandler terminates the process.
func DefaultFatalHandler(err error) {
	fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
	os.Exit(AbortExitCode)
}

// Option is a functional option for configuring the Registry
type Option func(*Registry)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics enables metric recording
func WithMetrics(m *metric.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithFatalHandler replaces the handler called on unresolvable owners
func WithFatalHandler(fn FatalHandler) Option {
	return func(r *Registry) {
		if fn != nil {
			r.fatal = fn
		}
	}
}
