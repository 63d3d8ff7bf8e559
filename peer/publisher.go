package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/finrocmirror/finroc-plugins-structure/component"
	"github.com/finrocmirror/finroc-plugins-structure/errors"
	"github.com/finrocmirror/finroc-plugins-structure/metric"
)

// EventType identifies a structure event
type EventType string

const (
	// EventCreated is published when a component finished construction
	EventCreated EventType = "component_created"
	// EventDestroyed is published when a component is destroyed
	EventDestroyed EventType = "component_destroyed"
)

// Event is the payload published for every structure change.
type Event struct {
	Type      EventType      `json:"type"`
	Peer      string         `json:"peer"`
	Host      string         `json:"host,omitempty"` // set when port links are not unique
	Timestamp string         `json:"timestamp"`      // RFC3339 format
	Component component.Info `json:"component"`
}

// Publisher announces changes of the component tree on NATS and answers
// structure listing requests. It implements component.Observer.
//
// A Publisher without connection is disabled: all methods are no-ops.
type Publisher struct {
	name    string
	subject string
	host    string
	nc      *nats.Conn
	owned   bool
	logger  *slog.Logger
	metrics *metric.Metrics

	mu     sync.Mutex
	closed bool
	subs   []*nats.Subscription
}

// NewPublisher creates a publisher on an existing connection. nc may be nil.
func NewPublisher(peerName string, nc *nats.Conn, opts ...Option) *Publisher {
	cfg := newOptions(opts)
	p := &Publisher{
		name:    peerName,
		subject: cfg.subject,
		nc:      nc,
		logger:  cfg.logger.With("component", "structure-peer", "peer", peerName),
		metrics: cfg.metrics,
	}
	if p.subject == "" {
		p.subject = ElementsSubject(peerName)
	}
	if cfg.hostPrefix {
		p.host, _ = os.Hostname()
	}
	p.metrics.RecordPeerStatus(nc != nil && nc.IsConnected())
	return p
}

// Connect dials the given NATS servers and returns a publisher owning the
// connection. An empty url list returns a disabled publisher.
func Connect(ctx context.Context, peerName string, urls []string, opts ...Option) (*Publisher, error) {
	if len(urls) == 0 {
		return NewPublisher(peerName, nil, opts...), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapTransient(err, "Publisher", "Connect", "context check")
	}

	cfg := newOptions(opts)
	timeout := cfg.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	logger := cfg.logger.With("component", "structure-peer", "peer", peerName)
	metrics := cfg.metrics
	natsOpts := []nats.Option{
		nats.Name(peerName),
		nats.Timeout(timeout),
		nats.MaxReconnects(cfg.maxReconnects),
		nats.ReconnectWait(cfg.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			metrics.RecordPeerStatus(false)
			if err != nil {
				logger.Warn("Disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			metrics.RecordPeerStatus(true)
			logger.Info("Reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			metrics.RecordPeerStatus(false)
		}),
	}
	if cfg.token != "" {
		natsOpts = append(natsOpts, nats.Token(cfg.token))
	}

	var nc *nats.Conn
	schedule := backoff{attempts: cfg.connectAttempts, initial: 100 * time.Millisecond, max: cfg.reconnectWait}
	err := schedule.do(ctx, func() error {
		var dialErr error
		nc, dialErr = nats.Connect(strings.Join(urls, ","), natsOpts...)
		if dialErr != nil {
			logger.Debug("NATS connection attempt failed", "error", dialErr)
		}
		return dialErr
	})
	if err != nil {
		return nil, errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrNotConnected, err),
			"Publisher", "Connect", "dial")
	}

	p := NewPublisher(peerName, nc, opts...)
	p.owned = true
	p.logger.Info("Connected to NATS", "url", nc.ConnectedUrl(), "subject", p.subject)
	return p, nil
}

// ElementsSubject returns the subject structure events of peerName are published on.
func ElementsSubject(peerName string) string {
	return fmt.Sprintf("structure.%s.elements", peerName)
}

// ListSubject returns the request subject answered by ServeStructure.
func ListSubject(peerName string) string {
	return fmt.Sprintf("structure.%s.list", peerName)
}

// Enabled reports whether the publisher has a connection.
func (p *Publisher) Enabled() bool {
	return p != nil && p.nc != nil
}

// Subject returns the subject events are published on.
func (p *Publisher) Subject() string {
	return p.subject
}

// ComponentCreated publishes an EventCreated event.
func (p *Publisher) ComponentCreated(c *component.Component) {
	p.publish(context.Background(), EventCreated, c)
}

// ComponentDestroyed publishes an EventDestroyed event.
func (p *Publisher) ComponentDestroyed(c *component.Component) {
	p.publish(context.Background(), EventDestroyed, c)
}

func (p *Publisher) publish(ctx context.Context, eventType EventType, c *component.Component) {
	if !p.Enabled() || c == nil {
		return
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}

	select {
	case <-ctx.Done():
		return
	default:
	}

	data, err := json.Marshal(p.event(eventType, c.Describe()))
	if err != nil {
		p.logger.Error("Failed to marshal structure event", "error", err)
		return
	}

	if err := p.nc.Publish(p.subject, data); err != nil {
		p.logger.Error("Failed to publish structure event", "error", err, "subject", p.subject)
		return
	}
	p.metrics.RecordPeerEvent(string(eventType))
	p.logger.Debug("Published structure event", "type", eventType, "path", c.QualifiedName())
}

func (p *Publisher) event(eventType EventType, info component.Info) Event {
	return Event{
		Type:      eventType,
		Peer:      p.name,
		Host:      p.host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Component: info,
	}
}

// ServeStructure answers requests on ListSubject with a JSON array of the
// Info of root and all of its descendants.
func (p *Publisher) ServeStructure(root *component.Component) error {
	if !p.Enabled() {
		return nil
	}
	if root == nil {
		return errors.WrapInvalid(errors.ErrNilComponent, "Publisher", "ServeStructure", "root check")
	}

	sub, err := p.nc.Subscribe(ListSubject(p.name), func(msg *nats.Msg) {
		data, err := json.Marshal(Snapshot(root))
		if err != nil {
			p.logger.Error("Failed to marshal structure snapshot", "error", err)
			return
		}
		if err := msg.Respond(data); err != nil {
			p.logger.Warn("Failed to answer structure request", "error", err)
		}
	})
	if err != nil {
		return errors.WrapTransient(err, "Publisher", "ServeStructure", "subscribe")
	}

	p.mu.Lock()
	p.subs = append(p.subs, sub)
	p.mu.Unlock()
	return nil
}

// Snapshot returns the Info of root and all of its descendants, parents first.
func Snapshot(root *component.Component) []component.Info {
	var infos []component.Info
	root.Walk(func(c *component.Component) {
		infos = append(infos, c.Describe())
	})
	return infos
}

// Close unsubscribes, flushes pending events and closes the connection if the
// publisher created it. Closing twice is a no-op.
func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	subs := p.subs
	p.subs = nil
	p.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}

	var err error
	if p.nc.IsConnected() {
		if flushErr := p.nc.FlushTimeout(2 * time.Second); flushErr != nil {
			err = errors.WrapTransient(flushErr, "Publisher", "Close", "flush")
		}
	}
	if p.owned {
		p.nc.Close()
	}
	p.metrics.RecordPeerStatus(false)
	return err
}
