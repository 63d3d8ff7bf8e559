package main

import (
	_ "embed"

	"github.com/finrocmirror/finroc-plugins-structure/component"
	"github.com/finrocmirror/finroc-plugins-structure/manifest"
	"github.com/finrocmirror/finroc-plugins-structure/registry"
)

//go:embed ports.yaml
var builtinManifest []byte

// TestModule publishes an incrementing counter every cycle and logs values
// arriving on its input. Its port names come from ports.yaml.
type TestModule struct {
	component.Component

	InputSignal  component.Input[int]
	OutputSignal component.Output[int]

	counter int
}

// Update implements component.Updater
func (m *TestModule) Update() {
	m.OutputSignal.Publish(m.counter)
	m.Logger().Debug("Published counter", "value", m.counter)
	m.counter++

	if m.InputSignal.HasChanged() {
		m.InputSignal.ResetChanged()
		m.Logger().Info("Received input signal", "value", m.InputSignal.Get())
	}
}

// registerBuiltins adds the port names of the modules of this program to reg.
func registerBuiltins(reg *registry.Registry) error {
	m, err := manifest.Parse(builtinManifest, manifest.FormatYAML)
	if err != nil {
		return err
	}
	_, err = m.Register(reg)
	return err
}

// createMainGroup fills the main thread container: one TestModule looping
// its output back to its input.
func createMainGroup(deps component.Dependencies, parent *component.Component) (*TestModule, error) {
	m, err := component.Create[TestModule](deps, parent, "TestModule")
	if err != nil {
		return nil, err
	}
	if err := component.Connect(&m.OutputSignal, &m.InputSignal); err != nil {
		component.Destroy(m.Base())
		return nil, err
	}
	return m, nil
}

// builtinManifestFromTypes derives a manifest from the struct fields of the
// built-in modules.
func builtinManifestFromTypes() (*manifest.Manifest, error) {
	levels, err := component.PortFieldNames[TestModule]()
	if err != nil {
		return nil, err
	}
	m := &manifest.Manifest{}
	for _, level := range levels {
		if len(level.Ports) > 0 {
			m.Add(level.TypeName, level.Ports)
		}
	}
	return m, nil
}
