package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/finrocmirror/finroc-plugins-structure/component"
	"github.com/finrocmirror/finroc-plugins-structure/errors"
	"github.com/finrocmirror/finroc-plugins-structure/metric"
)

// MainThreadName is the name of the thread container every Runtime creates.
const MainThreadName = "Main Thread"

// Status represents the current status of a thread container
type Status int

// Possible thread container statuses
const (
	StatusStopped Status = iota
	StatusRunning
	StatusPaused
	StatusStopping
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// ThreadContainer is a group whose modules are updated periodically by one
// goroutine. Every component below it that implements component.Updater gets
// one Update call per cycle, parents before children.
type ThreadContainer struct {
	component.Component

	cycleTime time.Duration
	metrics   *metric.Metrics
	guard     *crashGuard

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	paused    atomic.Bool
	stopping  atomic.Bool
	cycles    atomic.Int64
	lastCycle atomic.Int64 // nanoseconds
}

// ThreadContainerInfo holds runtime information for a thread container
type ThreadContainerInfo struct {
	Name      string        `json:"name"`
	Path      string        `json:"path"`
	Status    string        `json:"status"`
	CycleTime time.Duration `json:"cycle_time"`
	Cycles    int64         `json:"cycles"`
	LastCycle time.Duration `json:"last_cycle"`
}

// NewThreadContainer creates a thread container below parent. It does not
// start its loop.
func NewThreadContainer(
	deps component.Dependencies,
	parent *component.Component,
	name string,
	cycleTime time.Duration,
) (*ThreadContainer, error) {
	if cycleTime <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "ThreadContainer", "NewThreadContainer",
			"cycle time must be positive")
	}

	tc, err := component.Create[ThreadContainer](deps, parent, name)
	if err != nil {
		return nil, err
	}
	tc.cycleTime = cycleTime
	tc.metrics = deps.MetricsRegistry.CoreMetrics()
	return tc, nil
}

// CycleTime returns the configured cycle time
func (tc *ThreadContainer) CycleTime() time.Duration {
	return tc.cycleTime
}

// Start starts the update loop. A paused container runs its loop but skips
// Update calls until Resume.
func (tc *ThreadContainer) Start(ctx context.Context, paused bool) error {
	if tc.State() != component.StateReady {
		return errors.WrapInvalid(errors.ErrDestroyed, "ThreadContainer", "Start", "state check")
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.running && !tc.loopExited() {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "ThreadContainer", "Start", "state check")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	tc.cancel = cancel
	tc.done = make(chan struct{})
	tc.running = true
	tc.stopping.Store(false)
	tc.paused.Store(paused)

	go tc.loop(loopCtx, tc.done)

	tc.Logger().Info("Thread container started",
		"path", tc.QualifiedName(), "cycle_time", tc.cycleTime, "paused", paused)
	return nil
}

// Stop stops the update loop and waits up to timeout for the current cycle
// to finish. Stopping a stopped container is a no-op. If the loop does not
// exit in time the container stays running and Stop may be called again.
func (tc *ThreadContainer) Stop(timeout time.Duration) error {
	tc.mu.Lock()
	if !tc.running {
		tc.mu.Unlock()
		return nil
	}
	tc.stopping.Store(true)
	tc.cancel()
	done := tc.done
	tc.mu.Unlock()

	if timeout == 0 {
		timeout = 5 * time.Second
	}

	select {
	case <-done:
	case <-time.After(timeout):
		return errors.WrapTransient(errors.ErrConnectionTimeout, "ThreadContainer", "Stop",
			"waiting for update loop of "+tc.QualifiedName())
	}

	tc.mu.Lock()
	tc.running = false
	tc.mu.Unlock()
	tc.stopping.Store(false)

	tc.Logger().Info("Thread container stopped", "path", tc.QualifiedName(), "cycles", tc.cycles.Load())
	return nil
}

// loopExited reports whether the goroutine of the last Start has returned.
// Callers hold tc.mu.
func (tc *ThreadContainer) loopExited() bool {
	if tc.done == nil {
		return true
	}
	select {
	case <-tc.done:
		return true
	default:
		return false
	}
}

// Pause suspends Update calls without stopping the loop
func (tc *ThreadContainer) Pause() {
	if !tc.paused.Swap(true) {
		tc.Logger().Info("Thread container paused", "path", tc.QualifiedName())
	}
}

// Resume continues Update calls after Pause
func (tc *ThreadContainer) Resume() {
	if tc.paused.Swap(false) {
		tc.Logger().Info("Thread container resumed", "path", tc.QualifiedName())
	}
}

// IsRunning reports whether the update loop is running
func (tc *ThreadContainer) IsRunning() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.running
}

// Status returns the current status
func (tc *ThreadContainer) Status() Status {
	switch {
	case tc.stopping.Load():
		return StatusStopping
	case !tc.IsRunning():
		return StatusStopped
	case tc.paused.Load():
		return StatusPaused
	default:
		return StatusRunning
	}
}

// Cycles returns the number of completed update cycles
func (tc *ThreadContainer) Cycles() int64 {
	return tc.cycles.Load()
}

// GetStatus returns the current thread container information
func (tc *ThreadContainer) GetStatus() ThreadContainerInfo {
	return ThreadContainerInfo{
		Name:      tc.Name(),
		Path:      tc.QualifiedName(),
		Status:    tc.Status().String(),
		CycleTime: tc.cycleTime,
		Cycles:    tc.cycles.Load(),
		LastCycle: time.Duration(tc.lastCycle.Load()),
	}
}

// RunOnce performs one update cycle on the calling goroutine.
func (tc *ThreadContainer) RunOnce() {
	start := time.Now()
	for _, c := range tc.modules() {
		if c.State() != component.StateReady {
			continue
		}
		if u, ok := c.Self().(component.Updater); ok {
			u.Update()
		}
	}
	elapsed := time.Since(start)
	tc.cycles.Add(1)
	tc.lastCycle.Store(int64(elapsed))
	tc.metrics.RecordCycleDuration(tc.Name(), elapsed)
}

// OnDestroy stops the loop before the container leaves the tree.
func (tc *ThreadContainer) OnDestroy() {
	if err := tc.Stop(tc.cycleTime + time.Second); err != nil {
		tc.Logger().Warn("Update loop did not stop", "path", tc.QualifiedName(), "error", err)
	}
}

func (tc *ThreadContainer) modules() []*component.Component {
	var modules []*component.Component
	for _, child := range tc.Children() {
		child.Walk(func(c *component.Component) {
			modules = append(modules, c)
		})
	}
	return modules
}

func (tc *ThreadContainer) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer tc.guard.recover(tc.Logger(), "update loop "+tc.QualifiedName())

	ticker := time.NewTicker(tc.cycleTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if tc.paused.Load() {
				continue
			}
			tc.RunOnce()
			if elapsed := time.Duration(tc.lastCycle.Load()); elapsed > tc.cycleTime {
				tc.Logger().Debug("Update cycle exceeded cycle time",
					"path", tc.QualifiedName(), "elapsed", elapsed, "cycle_time", tc.cycleTime)
			}
		}
	}
}

func (tc *ThreadContainer) setCrashGuard(g *crashGuard) {
	tc.guard = g
}

var _ component.Destroyer = (*ThreadContainer)(nil)
