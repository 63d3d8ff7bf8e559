package component

import (
	"fmt"
	"reflect"

	"github.com/finrocmirror/finroc-plugins-structure/errors"
	"github.com/finrocmirror/finroc-plugins-structure/registry"
)

// LevelPorts holds the port names declared directly in one struct level.
type LevelPorts struct {
	TypeName string   `json:"type" yaml:"type"`
	Ports    []string `json:"ports" yaml:"ports"`
}

// PortFieldNames derives the port name table of T from its struct fields.
// The result has one entry per struct level, embedded levels first, in the
// order Create initializes them. A port field is named by its `port` tag or,
// without a tag, by its field name. Fields tagged `port:"-"` are not listed.
func PortFieldNames[T any]() ([]LevelPorts, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return nil, errors.WrapInvalid(fmt.Errorf("%s is not a struct", t),
			"Component", "PortFieldNames", "type check")
	}
	return collectLevels(t, nil), nil
}

func collectLevels(t reflect.Type, levels []LevelPorts) []LevelPorts {
	for i := 0; i < t.NumField(); i++ {
		if f := t.Field(i); isEmbeddedLevel(f) {
			levels = collectLevels(f.Type, levels)
		}
	}

	level := LevelPorts{TypeName: registry.TypeName(t), Ports: []string{}}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !isPortType(f.Type) {
			continue
		}
		name := f.Tag.Get("port")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		level.Ports = append(level.Ports, name)
	}
	return append(levels, level)
}

// RegisterType registers the port names of T and its embedded levels with
// reg. Levels already present in reg are left untouched.
func RegisterType[T any](reg *registry.Registry) error {
	if reg == nil {
		return errors.WrapFatal(errors.ErrNilRegistry, "Component", "RegisterType", "registry check")
	}
	levels, err := PortFieldNames[T]()
	if err != nil {
		return err
	}
	for _, level := range levels {
		if _, ok := reg.PortNames(level.TypeName); ok {
			continue
		}
		reg.RegisterPortNames(level.TypeName, level.Ports)
	}
	return nil
}
