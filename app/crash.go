package app

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/finrocmirror/finroc-plugins-structure/errors"
)

// CrashExitCode is the exit status after a recovered panic
const CrashExitCode = 2

// crashGuard logs a panic with its stack trace and terminates the process.
// A nil guard lets panics propagate unchanged.
type crashGuard struct {
	exit func(code int)
}

func newCrashGuard(enabled bool, exit func(int)) *crashGuard {
	if !enabled {
		return nil
	}
	if exit == nil {
		exit = os.Exit
	}
	return &crashGuard{exit: exit}
}

// recover must be deferred directly.
func (g *crashGuard) recover(logger *slog.Logger, where string) {
	if g == nil {
		return
	}
	r := recover()
	if r == nil {
		return
	}
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	msg := "Crash"
	if err, ok := r.(error); ok && errors.IsFatal(err) {
		msg = "Fatal precondition violated"
	}
	logger.Error(msg, "where", where, "panic", fmt.Sprint(r), "stack", string(buf[:n]))
	_, _ = fmt.Fprintf(os.Stderr, "PANIC in %s: %v\nStack trace:\n%s\n", where, r, string(buf[:n]))
	g.exit(CrashExitCode)
}
