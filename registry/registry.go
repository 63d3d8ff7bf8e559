package registry

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/finrocmirror/finroc-plugins-structure/errors"
	"github.com/finrocmirror/finroc-plugins-structure/metric"
)

// UnresolvedPortName is returned by ResolvePortName when no name is registered
// for the requested type and index.
const UnresolvedPortName = "(unresolved port name)"

// Owner is a handle to a component. It must be a non-nil pointer; the registry
// compares handles by identity and never dereferences them.
type Owner any

// MemoryBlock is one tracked component allocation.
type MemoryBlock struct {
	Address uintptr
	Size    uintptr
	// Owner is nil until the component constructor calls SetOwner.
	Owner Owner
}

// Contains reports whether ptr lies in [Address, Address+Size).
func (b MemoryBlock) Contains(ptr uintptr) bool {
	return ptr >= b.Address && ptr-b.Address < b.Size
}

type typePortNames struct {
	typeName string
	ports    []string
}

// Registry tracks component allocations during construction and resolves
// which component a port belongs to and what it is called.
//
// All methods are safe for concurrent use. A single mutex guards both the
// block list and the name table; every operation is treated as a writer.
type Registry struct {
	mu       sync.Mutex
	blocks   []MemoryBlock
	types    []typePortNames
	shutdown bool

	logger  *slog.Logger
	metrics *metric.Metrics
	fatal   FatalHandler
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		logger: slog.Default(),
		fatal:  DefaultFatalHandler,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "structure-registry")
	return r
}

// Track records the memory block in which a component is about to be constructed.
// It must be called before any port inside the block asks for its owner.
// Size is not validated; zero-size and overlapping blocks are accepted.
func (r *Registry) Track(address, size uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shutdown {
		r.logger.Debug("Ignoring memory block after shutdown", "address", fmtAddr(address))
		return
	}

	r.logger.Debug("Adding memory block", "address", fmtAddr(address), "size", size)
	r.blocks = append(r.blocks, MemoryBlock{Address: address, Size: size})
	r.metrics.RecordTrackedBlocks(len(r.blocks))
}

// SetOwner associates owner with the most recently tracked block that contains
// the owner's address and has no owner yet. It is called at the top of the
// component base initialization.
//
// owner must be a non-nil pointer; anything else is a programming error and panics.
func (r *Registry) SetOwner(owner Owner) {
	addr, err := addressOf(owner)
	if err != nil {
		panic(errors.WrapFatal(err, "Registry", "SetOwner", "owner address"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shutdown {
		return
	}

	for i := len(r.blocks) - 1; i >= 0; i-- {
		if r.blocks[i].Contains(addr) && r.blocks[i].Owner == nil {
			r.logger.Debug("Component resides in memory block",
				"owner", fmtAddr(addr), "block", fmtAddr(r.blocks[i].Address))
			r.blocks[i].Owner = owner
			return
		}
	}

	r.logger.Debug("No unowned memory block contains component", "owner", fmtAddr(addr))
}

// Untrack removes the block owned by owner. Unknown owners are ignored, so a
// second Untrack for the same handle is a no-op.
func (r *Registry) Untrack(owner Owner) {
	if _, err := addressOf(owner); err != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.blocks) - 1; i >= 0; i-- {
		if r.blocks[i].Owner == owner {
			r.logger.Debug("Removing memory block", "block", fmtAddr(r.blocks[i].Address))
			r.blocks = append(r.blocks[:i], r.blocks[i+1:]...)
			r.metrics.RecordTrackedBlocks(len(r.blocks))
			return
		}
	}
}

// ResolveOwner returns the owner of the most recently tracked block containing ptr.
//
// A containing block without owner is a programming error and panics. When no
// block contains ptr and abortIfNotFound is set, the fatal handler is invoked
// (by default the process exits); otherwise nil is returned.
func (r *Registry) ResolveOwner(ptr uintptr, abortIfNotFound bool) Owner {
	r.mu.Lock()
	defer r.mu.Unlock()

	// most recent block first: it is the innermost construction in progress
	for i := len(r.blocks) - 1; i >= 0; i-- {
		if r.blocks[i].Contains(ptr) {
			if r.blocks[i].Owner == nil {
				panic(errors.WrapFatal(
					fmt.Errorf("%w: block %s contains %s", errors.ErrOwnerUnset,
						fmtAddr(r.blocks[i].Address), fmtAddr(ptr)),
					"Registry", "ResolveOwner", "owner lookup"))
			}
			r.metrics.RecordOwnerResolution(true)
			return r.blocks[i].Owner
		}
	}

	r.metrics.RecordOwnerResolution(false)
	if abortIfNotFound {
		r.logger.Error("Could not find parent for port (or parameter). "+
			"Please provide port name and parent explicitly for all ports that are not plain "+
			"component struct fields (e.g. ports kept in a slice or map).",
			"address", fmtAddr(ptr))
		r.fatal(errors.WrapFatal(
			fmt.Errorf("%w for address %s", errors.ErrOwnerNotFound, fmtAddr(ptr)),
			"Registry", "ResolveOwner", "owner lookup"))
	}
	return nil
}

// Fatal reports an unrecoverable construction error through the registry's
// fatal handler. The caller logs the diagnostic before calling it.
func (r *Registry) Fatal(err error) {
	r.fatal(err)
}

// RegisterPortNames adds the ordered port names of a component type.
// Generic type arguments are stripped from typeName so that all
// instantiations share one entry.
func (r *Registry) RegisterPortNames(typeName string, names []string) {
	entry := typePortNames{
		typeName: StripTypeArguments(typeName),
		ports:    append([]string(nil), names...),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shutdown {
		return
	}

	r.types = append(r.types, entry)
	r.metrics.RecordRegisteredTypes(len(r.types))
	r.logger.Debug("Registered port names", "type", entry.typeName, "ports", len(entry.ports))
}

// ResolvePortName returns the auto-generated name of the port with the given
// index in owner's type. owner may be any value; its type name (see TypeName)
// is the lookup key.
func (r *Registry) ResolvePortName(owner any, index int) string {
	return r.ResolvePortNameForType(TypeName(owner), index)
}

// ResolvePortNameForType is ResolvePortName with an explicit type name.
// On a miss it logs a warning and returns UnresolvedPortName.
func (r *Registry) ResolvePortNameForType(typeName string, index int) string {
	typeName = StripTypeArguments(typeName)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.types {
		if entry.typeName != typeName {
			continue
		}
		if index >= 0 && index < len(entry.ports) {
			r.metrics.RecordPortNameLookup(true)
			return entry.ports[index]
		}
		break
	}

	r.metrics.RecordPortNameLookup(false)
	r.logger.Warn("Cannot resolve port name. Automatic port names are only available for a "+
		"component's plain struct fields. For other ports, the name needs to be specified "+
		"explicitly when creating the port. If this is a generic component type, it is "+
		"possibly missing from the port name manifest.",
		"type", typeName, "index", index)
	return UnresolvedPortName
}

// PortNames returns a copy of the names registered for typeName.
func (r *Registry) PortNames(typeName string) ([]string, bool) {
	typeName = StripTypeArguments(typeName)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.types {
		if entry.typeName == typeName {
			return append([]string(nil), entry.ports...), true
		}
	}
	return nil, false
}

// Len returns the number of tracked blocks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.blocks)
}

// Blocks returns a snapshot of the tracked blocks in insertion order.
func (r *Registry) Blocks() []MemoryBlock {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]MemoryBlock(nil), r.blocks...)
}

// Shutdown is the last lifecycle phase of the registry. It must run after all
// components have been destroyed. Afterwards Track, SetOwner and
// RegisterPortNames are ignored and Untrack stays a safe no-op.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shutdown {
		return
	}
	r.shutdown = true

	if len(r.blocks) > 0 {
		r.logger.Warn("Components still tracked at registry shutdown", "count", len(r.blocks))
	}
	r.blocks = nil
	r.metrics.RecordTrackedBlocks(0)
}

// IsShutdown reports whether Shutdown has been called.
func (r *Registry) IsShutdown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shutdown
}

func addressOf(owner Owner) (uintptr, error) {
	v := reflect.ValueOf(owner)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		return 0, fmt.Errorf("%w: got %T", errors.ErrNotPointer, owner)
	}
	return v.Pointer(), nil
}

func fmtAddr(addr uintptr) string {
	return fmt.Sprintf("%#x", addr)
}
