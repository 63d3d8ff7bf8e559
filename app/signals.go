package app

import (
	"log/slog"
	"os"
	"syscall"
)

// maxInterrupts is the SIGINT count at which the process is aborted
const maxInterrupts = 5

// signalHandler implements the shutdown protocol of the main loop. The first
// SIGINT or SIGTERM requests a clean shutdown. Further SIGINTs log a hint and
// the fifth one aborts; a SIGTERM during shutdown aborts immediately.
type signalHandler struct {
	logger   *slog.Logger
	shutdown func()
	abort    func()

	requests   int
	interrupts int
}

func newSignalHandler(logger *slog.Logger, shutdown, abort func()) *signalHandler {
	return &signalHandler{
		logger:   logger,
		shutdown: shutdown,
		abort:    abort,
	}
}

// requestShutdown returns true the first time it is called.
func (h *signalHandler) requestShutdown(reason string) bool {
	h.requests++
	if h.requests > 1 {
		return false
	}
	h.logger.Info("Shutting down", "reason", reason)
	h.shutdown()
	return true
}

func (h *signalHandler) handle(sig os.Signal) {
	switch sig {
	case os.Interrupt:
		h.interrupts++
		first := h.requestShutdown("SIGINT")
		if h.interrupts >= maxInterrupts {
			h.logger.Error("Caught SIGINT for the fifth time, aborting")
			h.abort()
			return
		}
		if !first {
			h.logger.Warn("Caught SIGINT again, still shutting down. Program will be aborted at fifth SIGINT",
				"count", h.interrupts)
		}
	case syscall.SIGTERM:
		if !h.requestShutdown("SIGTERM") {
			h.logger.Error("Caught SIGTERM while shutting down, aborting")
			h.abort()
		}
	default:
		h.logger.Debug("Ignoring signal", "signal", sig.String())
	}
}
