package component

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/finrocmirror/finroc-plugins-structure/errors"
	"github.com/finrocmirror/finroc-plugins-structure/registry"
)

// Direction for data flow
type Direction string

// Direction constants for port data flow
const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Port is the type-independent view of an Input or Output.
type Port interface {
	Name() string
	Direction() Direction
	DataType() string
	Owner() *Component
	IsConnected() bool
	Info() PortInfo

	detach()
}

// PortInfo describes a port for structure listings.
type PortInfo struct {
	Name      string    `json:"name"`
	Direction Direction `json:"direction"`
	DataType  string    `json:"data_type"`
	Connected bool      `json:"connected"`
}

// fieldPort is implemented by port types that can be declared as plain
// component struct fields.
type fieldPort interface {
	attachField(reg *registry.Registry, explicitName string)
}

var fieldPortType = reflect.TypeOf((*fieldPort)(nil)).Elem()

// portBase holds what Input and Output share.
type portBase struct {
	name      string
	direction Direction
	dataType  string
	owner     *Component
}

func (p *portBase) Name() string         { return p.name }
func (p *portBase) Direction() Direction { return p.direction }
func (p *portBase) DataType() string     { return p.dataType }
func (p *portBase) Owner() *Component    { return p.owner }

// QualifiedName returns the owner's qualified name followed by the port name.
func (p *portBase) QualifiedName() string {
	if p.owner == nil {
		return p.name
	}
	return p.owner.QualifiedName() + "/" + p.name
}

// resolve finds the owner of the port at addr and its name. An explicit name
// still advances the owner's naming cursor, so later auto-named ports of the
// same level keep their declared index.
func (p *portBase) resolve(reg *registry.Registry, addr uintptr, explicitName string) bool {
	owner, _ := reg.ResolveOwner(addr, true).(*Component)
	if owner == nil {
		return false
	}

	level := owner.currentLevel()
	index := owner.NextAutoIndex(level)
	name := explicitName
	if name == "" {
		name = reg.ResolvePortName(level, index)
	}

	p.owner = owner
	p.name = name
	return true
}

func (p *portBase) bindExplicit(owner *Component, name string) {
	owner.NextAutoIndex(owner.currentLevel())
	p.owner = owner
	p.name = name
}

func dataTypeOf[T any]() string {
	return registry.TypeName(reflect.TypeOf((*T)(nil)).Elem())
}

// Output publishes values of type T to all connected inputs.
//
// Declared as a struct field of a component, an Output attaches itself to the
// component and takes its name from the registry during Create.
type Output[T any] struct {
	portBase

	mu      sync.RWMutex
	value   T
	targets []*Input[T]
}

// NewOutput creates an output with an explicit name and attaches it to owner.
// Use it for ports that are not plain struct fields, such as ports kept in a slice.
func NewOutput[T any](owner Base, name string) (*Output[T], error) {
	c, err := explicitOwner(owner, name, "NewOutput")
	if err != nil {
		return nil, err
	}
	o := &Output[T]{}
	o.direction = DirectionOutput
	o.dataType = dataTypeOf[T]()
	o.bindExplicit(c, name)
	c.addPort(o)
	return o, nil
}

func (o *Output[T]) attachField(reg *registry.Registry, explicitName string) {
	o.direction = DirectionOutput
	o.dataType = dataTypeOf[T]()
	if o.resolve(reg, addressOf(o), explicitName) {
		o.owner.addPort(o)
	}
}

// Publish stores v as the current value and forwards it to every connected input.
func (o *Output[T]) Publish(v T) {
	o.mu.Lock()
	o.value = v
	targets := append([]*Input[T](nil), o.targets...)
	o.mu.Unlock()

	for _, in := range targets {
		in.receive(v)
	}
}

// Get returns the last published value.
func (o *Output[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// IsConnected reports whether at least one input is connected.
func (o *Output[T]) IsConnected() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.targets) > 0
}

// Info returns a description of the port.
func (o *Output[T]) Info() PortInfo {
	return PortInfo{Name: o.name, Direction: o.direction, DataType: o.dataType, Connected: o.IsConnected()}
}

// Remove detaches the output from its owner and disconnects it.
func (o *Output[T]) Remove() {
	if o.owner != nil {
		o.owner.removePort(o)
	}
	o.detach()
}

func (o *Output[T]) detach() {
	o.mu.Lock()
	targets := o.targets
	o.targets = nil
	o.mu.Unlock()

	for _, in := range targets {
		in.mu.Lock()
		if in.source == o {
			in.source = nil
		}
		in.mu.Unlock()
	}
}

// Input receives values of type T from at most one connected output.
type Input[T any] struct {
	portBase

	mu      sync.Mutex
	value   T
	changed bool
	source  *Output[T]
}

// NewInput creates an input with an explicit name and attaches it to owner.
func NewInput[T any](owner Base, name string) (*Input[T], error) {
	c, err := explicitOwner(owner, name, "NewInput")
	if err != nil {
		return nil, err
	}
	in := &Input[T]{}
	in.direction = DirectionInput
	in.dataType = dataTypeOf[T]()
	in.bindExplicit(c, name)
	c.addPort(in)
	return in, nil
}

func (in *Input[T]) attachField(reg *registry.Registry, explicitName string) {
	in.direction = DirectionInput
	in.dataType = dataTypeOf[T]()
	if in.resolve(reg, addressOf(in), explicitName) {
		in.owner.addPort(in)
	}
}

// Get returns the current value.
func (in *Input[T]) Get() T {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.value
}

// HasChanged reports whether a value arrived since the last ResetChanged.
func (in *Input[T]) HasChanged() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.changed
}

// ResetChanged clears the changed flag.
func (in *Input[T]) ResetChanged() {
	in.mu.Lock()
	in.changed = false
	in.mu.Unlock()
}

// IsConnected reports whether an output is connected.
func (in *Input[T]) IsConnected() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.source != nil
}

// Info returns a description of the port.
func (in *Input[T]) Info() PortInfo {
	return PortInfo{Name: in.name, Direction: in.direction, DataType: in.dataType, Connected: in.IsConnected()}
}

// Remove detaches the input from its owner and disconnects it.
func (in *Input[T]) Remove() {
	if in.owner != nil {
		in.owner.removePort(in)
	}
	in.detach()
}

func (in *Input[T]) receive(v T) {
	in.mu.Lock()
	in.value = v
	in.changed = true
	in.mu.Unlock()
}

func (in *Input[T]) detach() {
	in.mu.Lock()
	source := in.source
	in.source = nil
	in.mu.Unlock()

	if source == nil {
		return
	}
	source.mu.Lock()
	for i, target := range source.targets {
		if target == in {
			source.targets = append(source.targets[:i], source.targets[i+1:]...)
			break
		}
	}
	source.mu.Unlock()
}

// Connect connects out to in. An input accepts a single source. Values
// published afterwards are delivered to in.
func Connect[T any](out *Output[T], in *Input[T]) error {
	if out == nil || in == nil {
		return errors.WrapInvalid(fmt.Errorf("%w: nil port", errors.ErrNilComponent),
			"Port", "Connect", "argument check")
	}

	in.mu.Lock()
	if in.source != nil {
		in.mu.Unlock()
		return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrAlreadyConnected, in.QualifiedName()),
			"Port", "Connect", "source check")
	}
	in.source = out
	in.mu.Unlock()

	out.mu.Lock()
	out.targets = append(out.targets, in)
	out.mu.Unlock()
	return nil
}

func explicitOwner(owner Base, name, method string) (*Component, error) {
	if owner == nil || owner.Base() == nil {
		return nil, errors.WrapInvalid(errors.ErrNilComponent, "Port", method, "owner check")
	}
	if name == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: explicit port name required", errors.ErrInvalidName),
			"Port", method, "name check")
	}
	c := owner.Base()
	if c.State() == StateDestroyed {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrDestroyed, c.QualifiedName()),
			"Port", method, "owner state")
	}
	return c, nil
}
