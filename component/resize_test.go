package component

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finrocmirror/finroc-plugins-structure/errors"
)

func TestResizeInputs(t *testing.T) {
	env := newTestEnv(t)
	m, err := Create[Group](env.deps, nil, "Mixer")
	require.NoError(t, err)

	var inputs []*Input[float64]
	inputs, err = ResizeInputs(m, inputs, 3, "Input ", 1, "")
	require.NoError(t, err)
	require.Len(t, inputs, 3)
	assert.Equal(t, "Input 1", inputs[0].Name())
	assert.Equal(t, "Input 3", inputs[2].Name())
	assert.Len(t, m.Ports(), 3)

	inputs, err = ResizeInputs(m, inputs, 1, "Input ", 1, "")
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, []string{"Input 1"}, portNames(&m.Component))

	inputs, err = ResizeInputs(m, inputs, 2, "Input ", 1, "")
	require.NoError(t, err)
	assert.Equal(t, "Input 2", inputs[1].Name())
	assert.Empty(t, env.fatalErrors())
}

func TestResizeOutputs(t *testing.T) {
	env := newTestEnv(t)
	m, err := Create[Group](env.deps, nil, "Splitter")
	require.NoError(t, err)

	outputs, err := ResizeOutputs[int](m, nil, 2, "out[", 0, "]")
	require.NoError(t, err)
	assert.Equal(t, []string{"out[0]", "out[1]"}, portNames(&m.Component))

	var in Input[int]
	require.NoError(t, Connect(outputs[1], &in))

	outputs, err = ResizeOutputs(m, outputs, 1, "out[", 0, "]")
	require.NoError(t, err)
	assert.Len(t, outputs, 1)
	assert.False(t, in.IsConnected(), "removed outputs are disconnected")
}

func TestResize_NegativeCount(t *testing.T) {
	env := newTestEnv(t)
	m, err := Create[Group](env.deps, nil, "M")
	require.NoError(t, err)

	_, err = ResizeInputs[int](m, nil, -1, "in", 0, "")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}
