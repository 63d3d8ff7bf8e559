package component

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finrocmirror/finroc-plugins-structure/errors"
	"github.com/finrocmirror/finroc-plugins-structure/metric"
	"github.com/finrocmirror/finroc-plugins-structure/registry"
)

type testModule struct {
	Component

	InputSignal  Input[int]
	OutputSignal Output[int]
}

type threePorts struct {
	Component

	A Output[int]
	B Output[int]
	C Output[int]
}

type basePorts struct {
	Component

	A Input[int]
}

type derivedPorts struct {
	basePorts

	X Output[int]
	Y Output[int]
}

type taggedModule struct {
	Component

	First    Input[int]
	Speed    Input[float64] `port:"speed"`
	Third    Output[int]
	Later    Output[int] `port:"-"`
	Gain     float64
	Settings struct{ Limit int }
}

type containerModule struct {
	Component

	Out   Output[int]
	child *testModule
}

func (m *containerModule) Init() error {
	child, err := Create[testModule](m.Dependencies(), &m.Component, "Inner")
	if err != nil {
		return err
	}
	m.child = child
	return nil
}

type failingModule struct {
	Component

	Out Output[int]
}

var errInitFailed = stderrors.New("init failed")

func (m *failingModule) Init() error { return errInitFailed }

type recordingObserver struct {
	mu        sync.Mutex
	created   []string
	destroyed []string
}

func (o *recordingObserver) ComponentCreated(c *Component) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.created = append(o.created, c.Name())
}

func (o *recordingObserver) ComponentDestroyed(c *Component) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.destroyed = append(o.destroyed, c.Name())
}

type testEnv struct {
	deps     Dependencies
	reg      *registry.Registry
	observer *recordingObserver
	logs     *bytes.Buffer

	mu     sync.Mutex
	fatals []error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		observer: &recordingObserver{},
		logs:     &bytes.Buffer{},
	}
	logger := slog.New(slog.NewTextHandler(env.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	env.reg = registry.New(
		registry.WithLogger(logger),
		registry.WithFatalHandler(func(err error) {
			env.mu.Lock()
			defer env.mu.Unlock()
			env.fatals = append(env.fatals, err)
		}),
	)
	env.deps = Dependencies{
		Registry: env.reg,
		Logger:   logger,
		Observer: env.observer,
	}
	return env
}

func (env *testEnv) fatalErrors() []error {
	env.mu.Lock()
	defer env.mu.Unlock()
	return append([]error(nil), env.fatals...)
}

func (env *testEnv) root(t *testing.T) *Group {
	t.Helper()
	root, err := Create[Group](env.deps, nil, "Runtime")
	require.NoError(t, err)
	return root
}

func portNames(c *Component) []string {
	var names []string
	for _, p := range c.Ports() {
		names = append(names, p.Name())
	}
	return names
}

func TestCreate_AutoNamedPorts(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, RegisterType[testModule](env.reg))
	root := env.root(t)

	m, err := Create[testModule](env.deps, &root.Component, "TestModule")
	require.NoError(t, err)

	assert.Equal(t, "InputSignal", m.InputSignal.Name())
	assert.Equal(t, "OutputSignal", m.OutputSignal.Name())
	assert.Same(t, &m.Component, m.InputSignal.Owner())
	assert.Same(t, &m.Component, m.OutputSignal.Owner())
	assert.Equal(t, DirectionInput, m.InputSignal.Direction())
	assert.Equal(t, DirectionOutput, m.OutputSignal.Direction())
	assert.Equal(t, "int", m.InputSignal.DataType())
	assert.Equal(t, []string{"InputSignal", "OutputSignal"}, portNames(&m.Component))

	assert.Equal(t, "/Runtime/TestModule", m.QualifiedName())
	assert.Equal(t, "/Runtime/TestModule/OutputSignal", m.OutputSignal.QualifiedName())
	assert.Equal(t, StateReady, m.State())
	assert.Equal(t, "component.testModule", m.TypeName())
	assert.Same(t, &root.Component, m.Parent())
	assert.Equal(t, 2, env.reg.Len())
	assert.Empty(t, env.fatalErrors())
}

func TestCreate_UnresolvedPortName(t *testing.T) {
	env := newTestEnv(t)
	env.reg.RegisterPortNames(registry.TypeName((*threePorts)(nil)), []string{"first", "second"})

	m, err := Create[threePorts](env.deps, nil, "Three")
	require.NoError(t, err)

	assert.Equal(t, "first", m.A.Name())
	assert.Equal(t, "second", m.B.Name())
	assert.Equal(t, registry.UnresolvedPortName, m.C.Name())
	assert.Same(t, &m.Component, m.C.Owner())
	assert.Contains(t, env.logs.String(), "Cannot resolve port name")
	assert.Empty(t, env.fatalErrors())
}

func TestCreate_EmbeddedLevelsRestartCursor(t *testing.T) {
	env := newTestEnv(t)
	env.reg.RegisterPortNames(registry.TypeName((*basePorts)(nil)), []string{"a0"})
	env.reg.RegisterPortNames(registry.TypeName((*derivedPorts)(nil)), []string{"x0", "y1"})

	m, err := Create[derivedPorts](env.deps, nil, "Derived")
	require.NoError(t, err)

	assert.Equal(t, "a0", m.A.Name())
	assert.Equal(t, "x0", m.X.Name())
	assert.Equal(t, "y1", m.Y.Name())
	assert.Equal(t, []string{"a0", "x0", "y1"}, portNames(&m.Component))
	assert.Equal(t, "component.derivedPorts", m.TypeName())
}

func TestCreate_TaggedPorts(t *testing.T) {
	env := newTestEnv(t)
	env.reg.RegisterPortNames(registry.TypeName((*taggedModule)(nil)), []string{"one", "two", "three"})

	m, err := Create[taggedModule](env.deps, nil, "Tagged")
	require.NoError(t, err)

	assert.Equal(t, "one", m.First.Name())
	assert.Equal(t, "speed", m.Speed.Name())
	assert.Equal(t, "three", m.Third.Name(), "explicit name still consumes an index")
	assert.Nil(t, m.Later.Owner())
	assert.Len(t, m.Ports(), 3)
}

func TestCreate_NestedConstruction(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, RegisterType[testModule](env.reg))
	require.NoError(t, RegisterType[containerModule](env.reg))

	m, err := Create[containerModule](env.deps, nil, "Container")
	require.NoError(t, err)
	require.NotNil(t, m.child)

	assert.Same(t, &m.Component, m.Out.Owner())
	assert.Same(t, &m.child.Component, m.child.InputSignal.Owner())
	assert.Equal(t, "/Container/Inner", m.child.QualifiedName())
	assert.Equal(t, 2, env.reg.Len())

	env.observer.mu.Lock()
	assert.Equal(t, []string{"Inner", "Container"}, env.observer.created)
	env.observer.mu.Unlock()
}

func TestCreate_Errors(t *testing.T) {
	t.Run("nil registry", func(t *testing.T) {
		_, err := Create[testModule](Dependencies{}, nil, "M")
		require.Error(t, err)
		assert.True(t, errors.IsFatal(err))
		assert.ErrorIs(t, err, errors.ErrNilRegistry)
	})

	t.Run("empty name", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := Create[testModule](env.deps, nil, "")
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
		assert.Equal(t, 0, env.reg.Len())
	})

	t.Run("duplicate name", func(t *testing.T) {
		env := newTestEnv(t)
		root := env.root(t)
		_, err := Create[testModule](env.deps, &root.Component, "M")
		require.NoError(t, err)

		_, err = Create[testModule](env.deps, &root.Component, "M")
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
		assert.ErrorIs(t, err, errors.ErrDuplicateName)
		assert.Equal(t, 2, env.reg.Len(), "rejected component must be untracked")
		assert.Len(t, root.Children(), 1)
	})

	t.Run("registry shut down", func(t *testing.T) {
		env := newTestEnv(t)
		env.reg.Shutdown()
		_, err := Create[testModule](env.deps, nil, "M")
		assert.ErrorIs(t, err, errors.ErrShuttingDown)
	})

	t.Run("init failure", func(t *testing.T) {
		env := newTestEnv(t)
		root := env.root(t)
		_, err := Create[failingModule](env.deps, &root.Component, "Failing")
		require.Error(t, err)
		assert.ErrorIs(t, err, errInitFailed)
		assert.Empty(t, root.Children())
		assert.Equal(t, 1, env.reg.Len())

		env.observer.mu.Lock()
		assert.NotContains(t, env.observer.destroyed, "Failing")
		env.observer.mu.Unlock()
	})
}

func TestInit_NotCreatedByFactory(t *testing.T) {
	env := newTestEnv(t)
	m := &testModule{}

	err := m.Component.init(env.deps, nil, "Stray", m)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotCreatedByFactory)

	fatals := env.fatalErrors()
	require.Len(t, fatals, 1)
	assert.True(t, errors.IsFatal(fatals[0]))
	assert.Contains(t, env.logs.String(), "was not created using Create()")
}

func TestFieldPort_OutsideAnyComponent(t *testing.T) {
	env := newTestEnv(t)
	_ = env.root(t)

	ports := make([]Input[int], 2)
	ports[0].attachField(env.reg, "")

	fatals := env.fatalErrors()
	require.Len(t, fatals, 1)
	assert.ErrorIs(t, fatals[0], errors.ErrOwnerNotFound)
	assert.Nil(t, ports[0].Owner())
	assert.Empty(t, ports[0].Name())
	assert.Contains(t, env.logs.String(), "Please provide port name and parent explicitly")
}

func TestNextAutoIndex(t *testing.T) {
	var c Component

	assert.Equal(t, 0, c.NextAutoIndex("pkg.A"))
	assert.Equal(t, 1, c.NextAutoIndex("pkg.A"))
	assert.Equal(t, 2, c.NextAutoIndex("pkg.A"))
	assert.Equal(t, 0, c.NextAutoIndex("pkg.B"))
	assert.Equal(t, 0, c.NextAutoIndex("pkg.A"), "changing level restarts the cursor")

	assert.Equal(t, 0, c.NextAutoIndex(reflect.TypeOf((*basePorts)(nil)).Elem()))
	assert.Equal(t, 1, c.NextAutoIndex(reflect.TypeOf((*basePorts)(nil)).Elem()))
	assert.Equal(t, 0, c.NextAutoIndex("component.derivedPorts"))
	assert.Equal(t, 1, c.NextAutoIndex(reflect.TypeOf((*derivedPorts)(nil)).Elem()), "string and type keys agree")
}

func TestDestroy(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, RegisterType[testModule](env.reg))
	root := env.root(t)

	group, err := Create[Group](env.deps, &root.Component, "Group")
	require.NoError(t, err)
	first, err := Create[testModule](env.deps, &group.Component, "First")
	require.NoError(t, err)
	second, err := Create[testModule](env.deps, &group.Component, "Second")
	require.NoError(t, err)
	require.NoError(t, Connect(&first.OutputSignal, &second.InputSignal))
	assert.Equal(t, 4, env.reg.Len())

	Destroy(&group.Component)

	assert.Equal(t, StateDestroyed, group.State())
	assert.Equal(t, StateDestroyed, first.State())
	assert.Equal(t, StateDestroyed, second.State())
	assert.Empty(t, root.Children())
	assert.Empty(t, group.Children())
	assert.False(t, first.OutputSignal.IsConnected())
	assert.False(t, second.InputSignal.IsConnected())
	assert.Equal(t, 1, env.reg.Len())

	env.observer.mu.Lock()
	assert.Equal(t, []string{"Second", "First", "Group"}, env.observer.destroyed)
	env.observer.mu.Unlock()

	Destroy(&group.Component)
	Destroy(nil)
	assert.Equal(t, 1, env.reg.Len())

	_, err = Create[testModule](env.deps, &group.Component, "Late")
	assert.ErrorIs(t, err, errors.ErrDestroyed)
	assert.Equal(t, 1, env.reg.Len())
}

func TestDescribe(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, RegisterType[testModule](env.reg))
	root := env.root(t)
	m, err := Create[testModule](env.deps, &root.Component, "TestModule")
	require.NoError(t, err)

	info := root.Describe()
	assert.Equal(t, "/Runtime", info.Path)
	assert.Equal(t, "component.Group", info.Type)
	assert.Equal(t, []string{"TestModule"}, info.Children)
	assert.Empty(t, info.Ports)

	info = m.Describe()
	assert.Equal(t, m.ID().String(), info.ID)
	assert.Equal(t, "ready", info.State)
	require.Len(t, info.Ports, 2)
	assert.Equal(t, PortInfo{Name: "InputSignal", Direction: DirectionInput, DataType: "int"}, info.Ports[0])
}

func TestCreate_RecordsMetrics(t *testing.T) {
	env := newTestEnv(t)
	metrics := metric.NewMetricsRegistry()
	env.deps.MetricsRegistry = metrics

	m, err := Create[testModule](env.deps, nil, "M")
	require.NoError(t, err)
	Destroy(&m.Component)

	families, err := metrics.PrometheusRegistry().Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				values[mf.GetName()] = c.GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, values["finroc_component_created_total"])
	assert.Equal(t, 1.0, values["finroc_component_destroyed_total"])
}

func TestCreate_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, RegisterType[testModule](env.reg))
	root := env.root(t)

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	created := make(chan *testModule, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				m, err := Create[testModule](env.deps, &root.Component, fmt.Sprintf("m-%d-%d", w, i))
				if !assert.NoError(t, err) {
					return
				}
				created <- m
			}
		}(w)
	}
	wg.Wait()
	close(created)

	count := 0
	for m := range created {
		count++
		assert.Same(t, &m.Component, m.InputSignal.Owner())
		assert.Equal(t, "OutputSignal", m.OutputSignal.Name())
	}
	assert.Equal(t, workers*perWorker, count)
	assert.Len(t, root.Children(), workers*perWorker)
	assert.Equal(t, workers*perWorker+1, env.reg.Len())

	Destroy(&root.Component)
	assert.Equal(t, 0, env.reg.Len())
	assert.Empty(t, env.fatalErrors())
}
