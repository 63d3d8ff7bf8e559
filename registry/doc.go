// Package registry implements the construction-time registry that lets ports
// declared as plain struct fields find the component they belong to and the
// name they were declared under.
//
// # Overview
//
// The registry combines three tables behind one mutex:
//
//   - Memory blocks: the address range of every component allocation made by the
//     component factory, recorded with Track before any field is initialized and
//     removed with Untrack when the component is destroyed.
//   - Owners: SetOwner attaches the component handle to its block once the
//     component base knows its own address. ResolveOwner maps any address inside
//     the block (typically the address of a port field) back to that handle.
//   - Port names: RegisterPortNames stores the declared port names of a component
//     type in declaration order; ResolvePortName returns the name for a running
//     per-type index.
//
// # Construction Sequence
//
//	reg.Track(addr, size)           // factory, before initialization
//	reg.SetOwner(base)              // component base initialization
//	owner := reg.ResolveOwner(p, true)
//	name := reg.ResolvePortName(level, index)
//	...
//	reg.Untrack(base)               // component destruction
//
// Blocks are scanned from the most recently tracked one backwards. During nested
// construction the innermost allocation is the one that was started last, so the
// reverse scan finds the tightest enclosing block first, and with a single
// construction in flight the lookup ends at the first element.
//
// # Failure Modes
//
// ResolveOwner with abortIfNotFound fails loudly: the error is logged with a hint
// to pass name and parent explicitly, then the FatalHandler runs (by default the
// process exits with AbortExitCode). A port is never attached to a guessed parent.
// A block that contains the address but has no owner yet means a port asked for
// its owner before the component base was initialized; that is a programming
// error and panics.
//
// ResolvePortName never fails. Unknown types or out-of-range indices log a
// warning and return UnresolvedPortName.
//
// # Type Keys
//
// Port names are keyed by TypeName: the last element of the package path plus the
// type name, generic arguments stripped. The same function produces the key at
// registration and at lookup, so keys never depend on a separate naming scheme.
//
// # Lifecycle
//
// A Registry is an ordinary value owned by the application runtime. Shutdown is an
// explicit last phase: the runtime destroys every component first, then shuts the
// registry down. Untrack stays a safe no-op afterwards, so late destructions during
// teardown do not touch released state.
package registry
