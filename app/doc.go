// Package app runs a component tree as a process.
//
// A Runtime replaces the process-wide state a component framework usually
// keeps in globals. It owns the registry that ports use to find their
// components, the metrics registry, the root group and the main thread
// container, and it connects the structure peer:
//
//	rt, err := app.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	_, err = component.Create[MyModule](rt.Dependencies(), rt.MainThread().Base(), "MyModule")
//	if err != nil {
//		return err
//	}
//	return rt.Run(ctx)
//
// Run blocks until SIGINT or SIGTERM. A second SIGINT logs a hint, the fifth
// aborts the process, and a SIGTERM received while shutting down aborts
// immediately. Shutdown always proceeds in the same order: thread containers
// stop, the component tree is destroyed, the peer is closed, the registry is
// shut down and finally the HTTP server stops.
package app
