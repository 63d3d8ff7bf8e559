package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finrocmirror/finroc-plugins-structure/errors"
	"github.com/finrocmirror/finroc-plugins-structure/registry"
)

const yamlManifest = `
version: "1"
types:
  - type: test.TestModule
    ports: [input_signal, output_signal]
  - type: test.Group
    ports: []
`

const jsonManifest = `{
	"types": [
		{"type": "test.TestModule", "ports": ["input_signal", "output_signal"]},
		{"type": "test.Group", "ports": []}
	]
}`

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"yaml", yamlManifest, FormatYAML},
		{"json", jsonManifest, FormatJSON},
		{"auto yaml", yamlManifest, FormatAuto},
		{"auto json", jsonManifest, FormatAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.data), tt.format)
			require.NoError(t, err)
			require.Len(t, m.Types, 2)
			assert.Equal(t, Entry{Type: "test.TestModule", Ports: []string{"input_signal", "output_signal"}}, m.Types[0])
			assert.Equal(t, "test.Group", m.Types[1].Type)
			assert.Empty(t, m.Types[1].Ports)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
		target error
	}{
		{"malformed yaml", "types: [", FormatYAML, errors.ErrParsingFailed},
		{"malformed json", `{"types": [`, FormatJSON, errors.ErrParsingFailed},
		{"empty document", "", FormatYAML, errors.ErrInvalidManifest},
		{"missing ports", `{"types": [{"type": "a.B"}]}`, FormatJSON, errors.ErrInvalidManifest},
		{"empty type", `{"types": [{"type": "", "ports": []}]}`, FormatJSON, errors.ErrInvalidManifest},
		{"empty port name", `{"types": [{"type": "a.B", "ports": [""]}]}`, FormatJSON, errors.ErrInvalidManifest},
		{"unknown field", `{"types": [], "extra": 1}`, FormatJSON, errors.ErrInvalidManifest},
		{"port not a string", "types:\n  - type: a.B\n    ports: [1]\n", FormatYAML, errors.ErrInvalidManifest},
		{"duplicate type", `{"types": [{"type": "a.B", "ports": []}, {"type": "a.B", "ports": ["x"]}]}`, FormatJSON, errors.ErrInvalidManifest},
		{"unknown format", `{}`, Format("toml"), errors.ErrParsingFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "ports.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlManifest), 0644))
	jsonPath := filepath.Join(dir, "ports.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(jsonManifest), 0644))

	for _, path := range []string{yamlPath, jsonPath} {
		m, err := Load(path)
		require.NoError(t, err, path)
		assert.Len(t, m.Types, 2)
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, errors.ErrConfigNotFound)

	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("types: 3\n"), 0644))
	_, err = Load(badPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
	assert.ErrorIs(t, err, errors.ErrInvalidManifest)
}

func TestManifest_Register(t *testing.T) {
	m, err := Parse([]byte(yamlManifest), FormatAuto)
	require.NoError(t, err)

	reg := registry.New()
	n, err := m.Register(reg)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, "output_signal", reg.ResolvePortNameForType("test.TestModule", 1))
	names, ok := reg.PortNames("test.Group")
	assert.True(t, ok)
	assert.Empty(t, names)

	_, err = m.Register(nil)
	assert.True(t, errors.IsFatal(err))
}

func TestManifest_MarshalRoundTrip(t *testing.T) {
	var m Manifest
	m.Add("test.TestModule", []string{"a", "b"})
	m.Add("test.Buffer[int]", []string{"in"})
	m.Add("test.TestModule", []string{"input_signal"})

	require.Len(t, m.Types, 2)
	assert.Equal(t, "test.Buffer", m.Types[1].Type)
	assert.Equal(t, []string{"input_signal"}, m.Types[0].Ports)

	for _, format := range []Format{FormatYAML, FormatJSON} {
		data, err := m.Marshal(format)
		require.NoError(t, err)
		parsed, err := Parse(data, FormatAuto)
		require.NoError(t, err, string(data))
		assert.Equal(t, m.Types, parsed.Types)
	}

	empty, err := (&Manifest{}).Marshal(FormatJSON)
	require.NoError(t, err)
	_, err = Parse(empty, FormatJSON)
	assert.NoError(t, err)
}
