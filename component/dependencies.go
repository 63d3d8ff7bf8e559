package component

import (
	"log/slog"

	"github.com/finrocmirror/finroc-plugins-structure/metric"
	"github.com/finrocmirror/finroc-plugins-structure/registry"
)

// Observer is notified when components join or leave the tree.
// Implementations must not call back into the component while being notified.
type Observer interface {
	ComponentCreated(c *Component)
	ComponentDestroyed(c *Component)
}

// Dependencies provides all external dependencies needed to construct components.
// A copy is stored in every component created with it, so children created from
// inside a component can reuse Component.Dependencies().
type Dependencies struct {
	Registry        *registry.Registry      // Construction-time registry (required)
	MetricsRegistry *metric.MetricsRegistry // Metrics registry for Prometheus (can be nil)
	Logger          *slog.Logger            // Structured logger (can be nil, defaults to slog.Default())
	Observer        Observer                // Structure change observer (can be nil)
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetLoggerWithComponent returns a logger configured with component context
func (d *Dependencies) GetLoggerWithComponent(componentName string) *slog.Logger {
	return d.GetLogger().With("component", componentName)
}

func (d *Dependencies) metrics() *metric.Metrics {
	return d.MetricsRegistry.CoreMetrics()
}
