package component

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/finrocmirror/finroc-plugins-structure/errors"
	"github.com/finrocmirror/finroc-plugins-structure/registry"
)

var componentType = reflect.TypeOf(Component{})

// Create allocates a T, registers its memory block, initializes the embedded
// Component and attaches every port declared as a struct field.
//
// Ports are initialized one struct level at a time, embedded levels first, in
// field declaration order. A port without a `port:"name"` tag takes its name
// from the registry's table for the level it is declared in. A field tagged
// `port:"-"` is left alone.
//
// If T (or *T) implements Initializer, Init runs after all ports are attached.
func Create[T any, PT interface {
	*T
	Base
}](deps Dependencies, parent *Component, name string) (PT, error) {
	reg := deps.Registry
	if reg == nil {
		return nil, errors.WrapFatal(errors.ErrNilRegistry, "Component", "Create", "registry check")
	}
	if name == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: empty component name", errors.ErrInvalidName),
			"Component", "Create", "name check")
	}
	if reg.IsShutdown() {
		return nil, errors.WrapInvalid(errors.ErrShuttingDown, "Component", "Create", "registry state")
	}

	t := new(T)
	reg.Track(uintptr(unsafe.Pointer(t)), unsafe.Sizeof(*t))

	p := PT(t)
	c := p.Base()
	if err := c.init(deps, parent, name, p); err != nil {
		reg.Untrack(c)
		return nil, err
	}

	attachFieldPorts(reg, c, reflect.ValueOf(t).Elem())
	c.setLevel(nil)

	if i, ok := any(p).(Initializer); ok {
		if err := i.Init(); err != nil {
			Destroy(c)
			return nil, errors.Wrap(err, "Component", "Create", "init "+name)
		}
	}

	c.setState(StateReady)
	deps.metrics().RecordComponentCreated()
	if deps.Observer != nil {
		deps.Observer.ComponentCreated(c)
	}
	c.Logger().Debug("Created component",
		"type", c.TypeName(), "path", c.QualifiedName(), "ports", len(c.Ports()))
	return p, nil
}

// Destroy removes c and its subtree. Children are destroyed in reverse
// creation order, then c's ports are detached, c is removed from its parent
// and its memory block is released. Destroying twice is a no-op.
func Destroy(c *Component) {
	if c == nil {
		return
	}

	c.mu.Lock()
	if c.state == StateDestroyed {
		c.mu.Unlock()
		return
	}
	announced := c.state == StateReady
	c.state = StateDestroyed
	children := append([]*Component(nil), c.children...)
	c.mu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		Destroy(children[i])
	}

	if d, ok := c.self.(Destroyer); ok {
		d.OnDestroy()
	}

	for _, p := range c.Ports() {
		p.detach()
	}

	if c.parent != nil {
		c.parent.removeChild(c)
	}

	if announced {
		if c.deps.Observer != nil {
			c.deps.Observer.ComponentDestroyed(c)
		}
		c.deps.metrics().RecordComponentDestroyed()
	}
	if c.deps.Registry != nil {
		c.deps.Registry.Untrack(c)
	}
	c.Logger().Debug("Destroyed component", "path", c.QualifiedName())
}

// attachFieldPorts initializes the ports of one struct level. Embedded struct
// levels are handled first so that the naming cursor sees them before the
// level that embeds them.
func attachFieldPorts(reg *registry.Registry, c *Component, v reflect.Value) {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if isEmbeddedLevel(f) {
			attachFieldPorts(reg, c, v.Field(i))
		}
	}

	c.setLevel(t)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !isPortType(f.Type) {
			continue
		}
		tag := f.Tag.Get("port")
		if tag == "-" {
			continue
		}
		fieldPointer(v.Field(i)).(fieldPort).attachField(reg, tag)
	}
}

func isEmbeddedLevel(f reflect.StructField) bool {
	return f.Anonymous && f.Type.Kind() == reflect.Struct &&
		f.Type != componentType && !isPortType(f.Type)
}

func isPortType(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && reflect.PointerTo(t).Implements(fieldPortType)
}

// fieldPointer returns a pointer to an addressable field, exported or not.
func fieldPointer(fv reflect.Value) any {
	return reflect.NewAt(fv.Type(), unsafe.Pointer(fv.UnsafeAddr())).Interface()
}

func addressOf[T any](p *T) uintptr {
	return uintptr(unsafe.Pointer(p))
}
