// Package manifest reads port name manifests: documents that list, for each
// component type, the names of its struct-field ports in declaration order.
//
// A manifest is the declarative alternative to component.RegisterType. It is
// useful when the names shown to tools should differ from Go field names:
//
//	version: "1"
//	types:
//	  - type: test.TestModule
//	    ports: [input_signal, output_signal]
//
// Both YAML and JSON are accepted. Every document is validated against a JSON
// schema before any entry reaches the registry, and a type may appear only once
// per manifest. Type names use the registry key form (last package path element,
// a dot, the type name); generic arguments are stripped on registration.
package manifest
