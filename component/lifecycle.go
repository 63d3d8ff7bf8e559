package component

// State represents the current lifecycle state of a component
type State int

const (
	// StateConstructing indicates the component is being built by Create
	StateConstructing State = iota
	// StateReady indicates construction finished and the component is part of the tree
	StateReady
	// StateDestroyed indicates Destroy was called
	StateDestroyed
)

// String returns a string representation of the component state
func (s State) String() string {
	switch s {
	case StateConstructing:
		return "constructing"
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Base is implemented by every type that embeds Component.
type Base interface {
	Base() *Component
}

// Initializer is implemented by components that need to run code after all
// of their struct-field ports are attached and named. A returned error aborts
// Create and destroys the partially built component.
type Initializer interface {
	Init() error
}

// Updater is implemented by modules. A thread container calls Update once per
// cycle on every Updater below it.
type Updater interface {
	Update()
}

// Destroyer is implemented by components that release resources on Destroy.
// OnDestroy runs after the component's children are destroyed and before its
// ports are detached.
type Destroyer interface {
	OnDestroy()
}
