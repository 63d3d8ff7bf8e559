package metric

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finrocmirror/finroc-plugins-structure/errors"
)

func findFamily(t *testing.T, r *MetricsRegistry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.CoreMetrics())
}

func TestMetricsRegistry_RegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})

	err := registry.RegisterCounter("test-module", "test_counter", counter)
	require.NoError(t, err)

	counter.Inc()

	assert.NotNil(t, findFamily(t, registry, "test_counter"), "Counter should be registered in Prometheus registry")
}

func TestMetricsRegistry_DuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "A test gauge",
	})

	require.NoError(t, registry.RegisterGauge("test-module", "test_gauge", gauge))

	err := registry.RegisterGauge("test-module", "test_gauge", gauge)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_vec_total",
		Help: "A test counter vector",
	}, []string{"port"})

	require.NoError(t, registry.RegisterCounterVec("test-module", "test_vec_total", vec))
	vec.WithLabelValues("input_signal").Inc()

	assert.True(t, registry.Unregister("test-module", "test_vec_total"))
	assert.False(t, registry.Unregister("test-module", "test_vec_total"))
	assert.Nil(t, findFamily(t, registry, "test_vec_total"))
}

func TestMetrics_Record(t *testing.T) {
	registry := NewMetricsRegistry()
	m := registry.CoreMetrics()

	m.RecordTrackedBlocks(3)
	m.RecordRegisteredTypes(2)
	m.RecordOwnerResolution(true)
	m.RecordOwnerResolution(false)
	m.RecordPortNameLookup(false)
	m.RecordComponentCreated()
	m.RecordComponentDestroyed()
	m.RecordCycleDuration("main", 2*time.Millisecond)
	m.RecordPeerStatus(true)
	m.RecordPeerEvent("created")

	tracked := findFamily(t, registry, "finroc_registry_tracked_blocks")
	require.NotNil(t, tracked)
	assert.Equal(t, 3.0, tracked.GetMetric()[0].GetGauge().GetValue())

	lookups := findFamily(t, registry, "finroc_registry_owner_resolutions_total")
	require.NotNil(t, lookups)
	assert.Len(t, lookups.GetMetric(), 2)

	cycles := findFamily(t, registry, "finroc_thread_container_cycle_duration_seconds")
	require.NotNil(t, cycles)
	assert.Equal(t, uint64(1), cycles.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordTrackedBlocks(1)
		m.RecordOwnerResolution(true)
		m.RecordPortNameLookup(true)
		m.RecordComponentCreated()
		m.RecordCycleDuration("main", time.Second)
		m.RecordPeerEvent("created")
	})

	var r *MetricsRegistry
	assert.Nil(t, r.CoreMetrics())
}

func TestServer_Handler(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordTrackedBlocks(5)
	server := NewServer("", "", registry)

	assert.Equal(t, "http://:9090/metrics", server.Address())

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "finroc_registry_tracked_blocks 5"))

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "OK", rec.Body.String())
}

func TestServer_ExtraRoute(t *testing.T) {
	server := NewServer("127.0.0.1:0", "", NewMetricsRegistry())
	server.Handle("/structure", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/structure", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())
}

func TestServer_StartWithoutRegistry(t *testing.T) {
	server := NewServer("127.0.0.1:0", "/metrics", nil)
	err := server.Start()
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.NoError(t, server.Stop())
}
