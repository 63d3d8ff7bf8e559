package app

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/finrocmirror/finroc-plugins-structure/component"
	"github.com/finrocmirror/finroc-plugins-structure/config"
	"github.com/finrocmirror/finroc-plugins-structure/errors"
	"github.com/finrocmirror/finroc-plugins-structure/manifest"
	"github.com/finrocmirror/finroc-plugins-structure/metric"
	"github.com/finrocmirror/finroc-plugins-structure/peer"
	"github.com/finrocmirror/finroc-plugins-structure/registry"
)

// RootName is the name of the root element of every Runtime
const RootName = "Runtime"

// Runtime owns everything a process built from components needs: the
// construction-time registry, metrics, the component tree, thread containers,
// the structure peer and the HTTP server for /metrics and /structure.
type Runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	fatal     registry.FatalHandler
	exit      func(code int)
	registry  *registry.Registry
	metrics   *metric.MetricsRegistry
	publisher *peer.Publisher
	server    *metric.Server
	root      *component.Group
	main      *ThreadContainer
	deps      component.Dependencies
	guard     *crashGuard

	mu           sync.Mutex
	containers   []*ThreadContainer
	started      bool
	serverErr    chan error
	shutdownOnce sync.Once
	shutdownErr  error
}

// New builds a runtime from cfg: it loads the configured manifests, connects
// the structure peer and creates the root group and the main thread
// container. Nothing runs until Start.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Runtime", "New", "config check")
	}

	r := &Runtime{
		cfg:    cfg,
		logger: slog.Default(),
		exit:   os.Exit,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.guard = newCrashGuard(cfg.Runtime.CrashHandler, r.exit)

	r.metrics = metric.NewMetricsRegistry()
	r.registry = registry.New(
		registry.WithLogger(r.logger),
		registry.WithMetrics(r.metrics.CoreMetrics()),
		registry.WithFatalHandler(r.fatal),
	)

	for _, path := range cfg.Manifests {
		m, err := manifest.Load(path)
		if err != nil {
			return nil, err
		}
		n, err := m.Register(r.registry)
		if err != nil {
			return nil, err
		}
		r.logger.Info("Loaded port name manifest", "path", path, "types", n)
	}

	if r.publisher == nil {
		p, err := peer.Connect(ctx, cfg.Peer.Name, cfg.Peer.Connect,
			peer.WithLogger(r.logger),
			peer.WithMetrics(r.metrics.CoreMetrics()),
			peer.WithSubject(cfg.Peer.Subject),
			peer.WithHostPrefix(cfg.Peer.LinksNotUnique),
			peer.WithToken(cfg.Peer.Token),
			peer.WithMaxReconnects(cfg.Peer.MaxReconnects),
			peer.WithReconnectWait(cfg.Peer.ReconnectWait),
			peer.WithConnectAttempts(cfg.Peer.ConnectAttempts),
		)
		if err != nil {
			// the process keeps running without a peer connection
			r.logger.Warn("Error connecting peer", "error", err)
			p = peer.NewPublisher(cfg.Peer.Name, nil, peer.WithLogger(r.logger))
		}
		r.publisher = p
	}

	r.deps = component.Dependencies{
		Registry:        r.registry,
		MetricsRegistry: r.metrics,
		Logger:          r.logger,
	}
	if !cfg.Runtime.DisableComponentVisualization {
		r.deps.Observer = r.publisher
	}

	root, err := component.Create[component.Group](r.deps, nil, RootName)
	if err != nil {
		_ = r.publisher.Close()
		return nil, err
	}
	r.root = root

	r.main, err = r.NewThreadContainer(MainThreadName, cfg.Runtime.CycleTime)
	if err != nil {
		component.Destroy(root.Base())
		_ = r.publisher.Close()
		return nil, err
	}

	if err := r.publisher.ServeStructure(root.Base()); err != nil {
		r.logger.Warn("Structure listing not available", "error", err)
	}

	if addr := cfg.ListenAddr(); addr != "" {
		r.server = metric.NewServer(addr, config.DefaultMetricsPath, r.metrics)
		r.server.Handle("/structure", http.HandlerFunc(r.serveStructure))
		r.server.Handle("/threads", http.HandlerFunc(r.serveThreads))
		if cfg.Runtime.Profiling {
			r.server.Handle("/debug/pprof/", http.HandlerFunc(pprof.Index))
			r.server.Handle("/debug/pprof/profile", http.HandlerFunc(pprof.Profile))
			r.server.Handle("/debug/pprof/trace", http.HandlerFunc(pprof.Trace))
		}
	}
	return r, nil
}

// Dependencies returns the dependencies components of this runtime are created with
func (r *Runtime) Dependencies() component.Dependencies { return r.deps }

// Registry returns the construction-time registry
func (r *Runtime) Registry() *registry.Registry { return r.registry }

// Metrics returns the metrics registry
func (r *Runtime) Metrics() *metric.MetricsRegistry { return r.metrics }

// Logger returns the runtime logger
func (r *Runtime) Logger() *slog.Logger { return r.logger }

// Publisher returns the structure peer publisher
func (r *Runtime) Publisher() *peer.Publisher { return r.publisher }

// Root returns the root element of the component tree
func (r *Runtime) Root() *component.Component { return r.root.Base() }

// MainThread returns the main thread container
func (r *Runtime) MainThread() *ThreadContainer { return r.main }

// Config returns the configuration the runtime was built with
func (r *Runtime) Config() *config.Config { return r.cfg }

// NewThreadContainer creates an additional thread container below the root.
// It is started by Start, or immediately if the runtime is already running.
func (r *Runtime) NewThreadContainer(name string, cycleTime time.Duration) (*ThreadContainer, error) {
	tc, err := NewThreadContainer(r.deps, r.root.Base(), name, cycleTime)
	if err != nil {
		return nil, err
	}
	tc.setCrashGuard(r.guard)

	r.mu.Lock()
	r.containers = append(r.containers, tc)
	started := r.started
	r.mu.Unlock()

	if started {
		if err := tc.Start(context.Background(), r.cfg.Runtime.Pause); err != nil {
			return nil, err
		}
	}
	return tc, nil
}

// ThreadContainers returns all thread containers in creation order
func (r *Runtime) ThreadContainers() []*ThreadContainer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*ThreadContainer(nil), r.containers...)
}

// Start starts all thread containers and the HTTP server.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Runtime", "Start", "state check")
	}
	if r.registry.IsShutdown() {
		r.mu.Unlock()
		return errors.WrapInvalid(errors.ErrShuttingDown, "Runtime", "Start", "state check")
	}
	r.started = true
	containers := append([]*ThreadContainer(nil), r.containers...)
	r.mu.Unlock()

	for _, tc := range containers {
		if tc.State() != component.StateReady {
			continue
		}
		if err := tc.Start(ctx, r.cfg.Runtime.Pause); err != nil {
			return err
		}
	}

	if r.server != nil {
		r.serverErr = make(chan error, 1)
		go func() {
			defer r.guard.recover(r.logger, "http server")
			r.serverErr <- r.server.Start()
		}()
		r.logger.Info("HTTP server listening", "address", r.server.Address())
	}

	r.logger.Info("Runtime started",
		"peer", r.cfg.Peer.Name, "containers", len(containers), "paused", r.cfg.Runtime.Pause,
		"tracked_blocks", r.registry.Len())
	return nil
}

// Run starts the runtime and blocks until a signal or ctx requests shutdown,
// then shuts down. Signals follow the protocol of signalHandler.
func (r *Runtime) Run(ctx context.Context) error {
	defer r.guard.recover(r.logger, "main loop")

	if err := r.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 8)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return r.wait(ctx, sigCh)
}

// wait serves signals until shutdown completes.
func (r *Runtime) wait(ctx context.Context, sigCh <-chan os.Signal) error {
	stop := make(chan struct{})
	h := newSignalHandler(r.logger,
		func() { close(stop) },
		func() { r.exit(registry.AbortExitCode) },
	)

	ctxDone := ctx.Done()
	stopCh := stop
	shutdownDone := make(chan error, 1)
	for {
		select {
		case sig := <-sigCh:
			h.handle(sig)
		case <-ctxDone:
			ctxDone = nil
			h.requestShutdown("context canceled")
		case err := <-r.serverErr:
			if err != nil {
				r.logger.Error("HTTP server failed", "error", err)
			}
			r.serverErr = nil
		case <-stopCh:
			stopCh = nil
			go func() {
				shutdownDone <- r.Shutdown()
			}()
		case err := <-shutdownDone:
			return err
		}
	}
}

// Shutdown stops all loops, destroys the component tree, closes the peer,
// shuts the registry down and stops the HTTP server. Only the first call does
// any work; later calls return its result.
func (r *Runtime) Shutdown() error {
	r.shutdownOnce.Do(func() {
		r.shutdownErr = r.shutdown()
	})
	return r.shutdownErr
}

func (r *Runtime) shutdown() error {
	var errs []error
	timeout := r.cfg.Runtime.ShutdownTimeout

	for _, tc := range r.ThreadContainers() {
		if err := tc.Stop(timeout); err != nil {
			errs = append(errs, err)
		}
	}

	component.Destroy(r.root.Base())

	if err := r.publisher.Close(); err != nil {
		errs = append(errs, err)
	}

	r.registry.Shutdown()

	if r.server != nil {
		if err := r.server.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	r.logger.Info("Runtime shutdown complete")
	return stderrors.Join(errs...)
}

func (r *Runtime) serveStructure(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, peer.Snapshot(r.root.Base()))
}

func (r *Runtime) serveThreads(w http.ResponseWriter, _ *http.Request) {
	containers := r.ThreadContainers()
	infos := make([]ThreadContainerInfo, 0, len(containers))
	for _, tc := range containers {
		infos = append(infos, tc.GetStatus())
	}
	writeJSON(w, infos)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
