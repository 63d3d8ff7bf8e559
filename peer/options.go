package peer

import (
	"log/slog"
	"time"

	"github.com/finrocmirror/finroc-plugins-structure/metric"
)

type options struct {
	logger        *slog.Logger
	metrics       *metric.Metrics
	subject       string
	hostPrefix    bool
	token         string
	timeout       time.Duration
	maxReconnects int
	reconnectWait time.Duration

	connectAttempts int
}

func newOptions(opts []Option) *options {
	cfg := &options{
		logger:        slog.Default(),
		timeout:       5 * time.Second,
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,

		connectAttempts: 1,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Option is a functional option for configuring the Publisher
type Option func(*options)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics enables metric recording
func WithMetrics(m *metric.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithSubject overrides the subject events are published on
func WithSubject(subject string) Option {
	return func(o *options) {
		o.subject = subject
	}
}

// WithHostPrefix adds the host name to every event. Use it when port links
// of this process are not unique in the peer network.
func WithHostPrefix(enabled bool) Option {
	return func(o *options) {
		o.hostPrefix = enabled
	}
}

// WithToken sets the NATS authentication token
func WithToken(token string) Option {
	return func(o *options) {
		o.token = token
	}
}

// WithTimeout sets the connection timeout
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithMaxReconnects sets the maximum number of reconnection attempts (-1 for unlimited)
func WithMaxReconnects(max int) Option {
	return func(o *options) {
		o.maxReconnects = max
	}
}

// WithReconnectWait sets the delay between reconnection attempts
func WithReconnectWait(wait time.Duration) Option {
	return func(o *options) {
		if wait > 0 {
			o.reconnectWait = wait
		}
	}
}

// WithConnectAttempts sets how often the initial connection is tried before
// Connect gives up. Attempts back off exponentially up to the reconnect wait.
func WithConnectAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.connectAttempts = n
		}
	}
}
