package component

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/finrocmirror/finroc-plugins-structure/errors"
	"github.com/finrocmirror/finroc-plugins-structure/registry"
)

// Component is the embeddable base of every element in the component tree.
//
// A Component must be constructed by Create. It is placed at a fixed address
// inside the enclosing struct, which is what lets struct-field ports find it
// through the registry; it must never be copied.
type Component struct {
	id     uuid.UUID
	name   string
	parent *Component
	self   any
	deps   Dependencies
	logger *slog.Logger

	mu       sync.RWMutex
	state    State
	children []*Component
	ports    []Port

	// naming cursor: index of the last auto-named port of the struct level
	// identified by autoNameType
	autoNameType  string
	autoNameIndex int
	level         reflect.Type
}

// Base returns c. Types that embed Component inherit it and thereby satisfy
// the Base constraint of Create.
func (c *Component) Base() *Component { return c }

// ID returns the unique identifier assigned at creation.
func (c *Component) ID() uuid.UUID { return c.id }

// Name returns the component's name within its parent.
func (c *Component) Name() string { return c.name }

// Parent returns the parent component or nil for a tree root.
func (c *Component) Parent() *Component { return c.parent }

// Self returns the outermost struct the component is embedded in, as passed to Create.
func (c *Component) Self() any { return c.self }

// TypeName returns the registry type name of the outermost struct.
func (c *Component) TypeName() string { return registry.TypeName(c.self) }

// Logger returns the component's logger.
func (c *Component) Logger() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Dependencies returns the dependencies the component was created with.
func (c *Component) Dependencies() Dependencies { return c.deps }

// State returns the lifecycle state.
func (c *Component) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// QualifiedName returns the slash-separated path from the tree root.
func (c *Component) QualifiedName() string {
	var parts []string
	for e := c; e != nil; e = e.parent {
		parts = append(parts, e.name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

// Children returns a snapshot of the direct children in creation order.
func (c *Component) Children() []*Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Component(nil), c.children...)
}

// Child returns the direct child with the given name.
func (c *Component) Child(name string) (*Component, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, child := range c.children {
		if child.name == name {
			return child, true
		}
	}
	return nil, false
}

// Ports returns a snapshot of the attached ports in attachment order.
func (c *Component) Ports() []Port {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Port(nil), c.ports...)
}

// Port returns the first attached port with the given name.
func (c *Component) Port(name string) (Port, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.ports {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Walk calls fn for c and all of its descendants, parents before children.
func (c *Component) Walk(fn func(*Component)) {
	fn(c)
	for _, child := range c.Children() {
		child.Walk(fn)
	}
}

// NextAutoIndex advances the naming cursor for the struct level identified by
// level and returns the index of the next auto-named port. When level differs
// from the level seen by the previous call the cursor restarts at 0.
//
// level is anything TypeName accepts; ports pass the reflect.Type of the
// struct level currently being initialized.
func (c *Component) NextAutoIndex(level any) int {
	name := registry.TypeName(level)

	c.mu.Lock()
	defer c.mu.Unlock()

	if name != c.autoNameType {
		c.autoNameType = name
		c.autoNameIndex = 0
	} else {
		c.autoNameIndex++
	}
	return c.autoNameIndex
}

func (c *Component) currentLevel() reflect.Type {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.level == nil {
		return reflect.TypeOf(c.self)
	}
	return c.level
}

func (c *Component) setLevel(t reflect.Type) {
	c.mu.Lock()
	c.level = t
	c.mu.Unlock()
}

// init is the component base initialization. It runs on the tracked
// allocation before any port field is attached.
func (c *Component) init(deps Dependencies, parent *Component, name string, self any) error {
	c.id = uuid.New()
	c.name = name
	c.self = self
	c.deps = deps
	c.logger = deps.GetLoggerWithComponent(name)
	c.state = StateConstructing

	reg := deps.Registry
	reg.SetOwner(c)

	if owner := reg.ResolveOwner(addressOf(c), false); owner != registry.Owner(c) {
		c.logger.Error("Component was not created using Create()", "type", c.TypeName())
		err := errors.WrapFatal(fmt.Errorf("%w: component %s", errors.ErrNotCreatedByFactory, name),
			"Component", "init", "owner self check")
		reg.Fatal(err)
		return err
	}

	if parent != nil {
		c.parent = parent
		if err := parent.addChild(c); err != nil {
			c.parent = nil
			return err
		}
	}
	return nil
}

func (c *Component) addChild(child *Component) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDestroyed {
		return errors.WrapInvalid(fmt.Errorf("%w: parent %s", errors.ErrDestroyed, c.name),
			"Component", "addChild", "parent state")
	}
	for _, existing := range c.children {
		if existing.name == child.name {
			return errors.WrapInvalid(fmt.Errorf("%w: %s already has a child named %q",
				errors.ErrDuplicateName, c.QualifiedName(), child.name),
				"Component", "addChild", "name check")
		}
	}
	c.children = append(c.children, child)
	return nil
}

func (c *Component) removeChild(child *Component) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.children {
		if existing == child {
			c.children = append(c.children[:i], c.children[i+1:]...)
			return
		}
	}
}

func (c *Component) addPort(p Port) {
	c.mu.Lock()
	c.ports = append(c.ports, p)
	c.mu.Unlock()
}

func (c *Component) removePort(p Port) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.ports {
		if existing == p {
			c.ports = append(c.ports[:i], c.ports[i+1:]...)
			return
		}
	}
}

func (c *Component) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
