package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/finrocmirror/finroc-plugins-structure/component"
	"github.com/finrocmirror/finroc-plugins-structure/metric"
	"github.com/finrocmirror/finroc-plugins-structure/registry"
)

// startNATS runs a NATS server container and returns its client URL.
func startNATS(t *testing.T) string {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("Skipping integration test. Set INTEGRATION_TESTS=1 to run.")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "nats:2.11.7-alpine",
		ExposedPorts: []string{"4222/tcp"},
		Cmd:          []string{"--port", "4222"},
		WaitingFor:   wait.ForListeningPort("4222/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start NATS container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4222")
	require.NoError(t, err)
	return fmt.Sprintf("nats://%s:%s", host, port.Port())
}

func TestPublisher_Integration(t *testing.T) {
	url := startNATS(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	metrics := metric.NewMetricsRegistry()
	p, err := Connect(ctx, "robot", []string{url},
		WithMetrics(metrics.CoreMetrics()), WithMaxReconnects(0))
	require.NoError(t, err)
	require.True(t, p.Enabled())
	defer p.Close()

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	defer sub.Close()

	events := make(chan *nats.Msg, 16)
	s, err := sub.ChanSubscribe(ElementsSubject("robot"), events)
	require.NoError(t, err)
	defer s.Unsubscribe()
	require.NoError(t, sub.Flush())

	deps := component.Dependencies{
		Registry:        registry.New(),
		MetricsRegistry: metrics,
		Observer:        p,
	}
	root, err := component.Create[component.Group](deps, nil, "Main")
	require.NoError(t, err)
	require.NoError(t, p.ServeStructure(root.Base()))

	child, err := component.Create[sensor](deps, root.Base(), "Sensor")
	require.NoError(t, err)

	receive := func() Event {
		t.Helper()
		select {
		case msg := <-events:
			var ev Event
			require.NoError(t, json.Unmarshal(msg.Data, &ev))
			return ev
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for structure event")
			return Event{}
		}
	}

	ev := receive()
	assert.Equal(t, EventCreated, ev.Type)
	assert.Equal(t, "/Main", ev.Component.Path)
	ev = receive()
	assert.Equal(t, EventCreated, ev.Type)
	assert.Equal(t, "/Main/Sensor", ev.Component.Path)
	assert.Len(t, ev.Component.Ports, 2)

	reply, err := sub.Request(ListSubject("robot"), nil, 5*time.Second)
	require.NoError(t, err)
	var infos []component.Info
	require.NoError(t, json.Unmarshal(reply.Data, &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "/Main/Sensor", infos[1].Path)

	component.Destroy(child.Base())
	ev = receive()
	assert.Equal(t, EventDestroyed, ev.Type)
	assert.Equal(t, "Sensor", ev.Component.Name)

	require.NoError(t, p.Close())
}
