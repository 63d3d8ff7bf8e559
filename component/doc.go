// Package component provides the component tree and the typed ports that are
// declared as plain struct fields of a component.
//
// # Overview
//
// A component is any struct that embeds Component. Components are created only
// through Create, which records the struct's memory block with the
// construction-time registry before initializing it. While the struct is being
// initialized, each port field asks the registry which component contains its
// address and which name the port at the current index has. The port then
// attaches itself to that component under that name, without any constructor
// arguments:
//
//	type TestModule struct {
//		component.Component
//
//		InputSignal  component.Input[int]
//		OutputSignal component.Output[int]
//	}
//
//	if err := component.RegisterType[TestModule](reg); err != nil {
//		return err
//	}
//	m, err := component.Create[TestModule](deps, parent, "TestModule")
//	// m.InputSignal.Name() == "InputSignal"
//
// # Port Names
//
// The registry keeps one ordered list of port names per struct type. The list
// comes either from RegisterType, which derives it from the field names and
// `port` tags, or from a port name manifest (see package manifest).
//
// Each component carries a naming cursor. A port field advances the cursor and
// looks up its name at the resulting index. When the struct level changes, the
// cursor restarts at 0. Embedded struct levels are initialized before the level
// that embeds them, so a derived component's ports are numbered independently
// of the ports it inherits:
//
//	type Base struct {
//		component.Component
//		A component.Input[int]     // Base, index 0
//	}
//	type Derived struct {
//		Base
//		X component.Output[int]    // Derived, index 0
//		Y component.Output[int]    // Derived, index 1
//	}
//
// A tag gives a port an explicit name (`port:"speed"`) and still consumes an
// index. A `port:"-"` field is not attached during Create.
//
// Ports that are not plain struct fields, for example ports kept in a slice,
// cannot be found through the registry. They are created with NewInput and
// NewOutput, or with ResizeInputs and ResizeOutputs for port vectors, and
// always need an explicit name.
//
// # Lifecycle
//
// Create runs the component base initialization, attaches the ports, then
// calls Init if the component implements Initializer. Destroy tears the subtree
// down in reverse creation order and releases the memory block. A thread
// container calls Update on every component implementing Updater.
package component
