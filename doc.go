// Package structure is the construction-time support of a component
// framework: components and their ports find each other while they are being
// built, without any explicit wiring code.
//
// # How ports find their component
//
// A component is a struct embedding component.Component. It is allocated by
// component.Create, which registers the struct's memory block with a
// registry.Registry before anything inside it is initialized. Each port
// field then asks the registry which block contains its own address and so
// finds the component it belongs to. When the port was declared without a
// name, the component's naming cursor together with the registry's port name
// table for the struct level supplies one.
//
//	type Controller struct {
//		component.Component
//
//		Setpoint component.Input[float64]
//		Command  component.Output[float64]
//	}
//
//	reg.RegisterPortNames("mypkg.Controller", []string{"setpoint", "command"})
//	c, err := component.Create[Controller](deps, parent, "Controller")
//
// An auto-named port that is not inside any tracked block cannot be
// attributed to a component; this is treated as a programming error and ends
// the process through the registry's fatal handler.
//
// # Packages
//
//   - registry: memory blocks, owner resolution and port name tables
//   - component: components, typed ports, the factory and type registration
//   - manifest: JSON/YAML port name tables validated against a JSON schema
//   - peer: structure events and listings over NATS
//   - app: the runtime with thread containers, signal handling and shutdown
//   - config: layered JSON configuration with environment overrides
//   - metric: Prometheus metrics and the HTTP server for /metrics
//   - errors: classified errors shared by all packages
//
// # Running
//
// cmd/finroc-structure is the default main program. It accepts the common
// options of component based applications:
//
//	finroc-structure --config-file=structure.json --connect=nats://localhost:4222 --pause
//
// Structure events for the peer named "finroc-structure" are published on
// structure.finroc-structure.elements; the current tree is served at
// http://<listen-address>:<port>/structure.
package structure
