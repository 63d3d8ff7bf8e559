// Package errors provides standardized error handling patterns for structure components.
//
// # Overview
//
// The errors package implements a three-class error classification system: Transient
// (temporary, retryable), Invalid (bad input, non-retryable), and Fatal (unrecoverable,
// stop processing).
//
// Component construction has exactly two failure kinds. An unresolvable parent for an
// auto-named port is Fatal: the process must not continue with a port attached to an
// undefined parent. An unresolvable port name is not an error at all; it degrades to a
// placeholder name and a warning. Everything returned from configuration, manifest and
// peer handling is classified Invalid or Transient.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Publisher", "Connect", "dial")       // For retryable errors
//	errors.WrapInvalid(err, "Manifest", "Parse", "schema check")    // For validation errors
//	errors.WrapFatal(err, "Registry", "ResolveOwner", "lookup")     // For unrecoverable errors
//
// The generic Wrap() function keeps the original error in the chain:
//
//	errors.Wrap(err, "Component", "Method", "action")
//
// # Fatal Preconditions
//
// Caller discipline violations inside the registry (an owner-less block hit during
// resolution, a non-pointer owner) are programming errors. They panic with a value
// produced by WrapFatal so that recovery code (the runtime's crash handler) can
// still classify them:
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        if err, ok := r.(error); ok && errors.IsFatal(err) {
//	            // log and exit
//	        }
//	    }
//	}()
//
// IsFatal and IsInvalid only look at the class recorded by the Wrap helpers.
// IsInvalid also accepts the bare invalid-input sentinels, which lets the command
// map configuration mistakes to a usage exit status.
//
// # Integration with errors.As/Is
//
//	var ce *errors.ClassifiedError
//	if errors.As(err, &ce) {
//	    log.Printf("Component: %s, Class: %s", ce.Component, ce.Class)
//	}
//
//	if errors.Is(err, errors.ErrInvalidManifest) {
//	    // Handle bad manifest
//	}
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access.
package errors
