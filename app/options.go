package app

import (
	"log/slog"

	"github.com/finrocmirror/finroc-plugins-structure/peer"
	"github.com/finrocmirror/finroc-plugins-structure/registry"
)

// Option is a functional option for configuring the Runtime
type Option func(*Runtime)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPublisher uses an existing publisher instead of connecting to the
// servers listed in the configuration.
func WithPublisher(p *peer.Publisher) Option {
	return func(r *Runtime) {
		r.publisher = p
	}
}

// WithFatalHandler replaces the registry's fatal handler
func WithFatalHandler(fn registry.FatalHandler) Option {
	return func(r *Runtime) {
		r.fatal = fn
	}
}

// WithExit replaces os.Exit for aborts and crashes
func WithExit(exit func(code int)) Option {
	return func(r *Runtime) {
		if exit != nil {
			r.exit = exit
		}
	}
}
