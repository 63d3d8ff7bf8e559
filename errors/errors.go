package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop processing
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Component construction errors
	ErrOwnerNotFound       = errors.New("could not find parent component")
	ErrOwnerUnset          = errors.New("memory block has no owner yet")
	ErrNotCreatedByFactory = errors.New("component was not created using Create()")
	ErrNotPointer          = errors.New("owner must be a non-nil pointer")
	ErrNilRegistry         = errors.New("registry cannot be nil")
	ErrNilComponent        = errors.New("component cannot be nil")
	ErrDuplicateName       = errors.New("duplicate element name")
	ErrDestroyed           = errors.New("component already destroyed")
	ErrInvalidName         = errors.New("invalid element name")

	// Port errors
	ErrAlreadyConnected = errors.New("port already connected")

	// Lifecycle errors
	ErrAlreadyStarted = errors.New("already started")
	ErrShuttingDown   = errors.New("shutting down")

	// Connection errors
	ErrNotConnected      = errors.New("not connected")
	ErrConnectionTimeout = errors.New("connection timeout")

	// Configuration errors
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrMissingConfig   = errors.New("missing required configuration")
	ErrConfigNotFound  = errors.New("configuration not found")
	ErrInvalidManifest = errors.New("invalid port name manifest")
	ErrParsingFailed   = errors.New("parsing failed")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsFatal reports whether err carries the fatal class. Registry precondition
// panics use WrapFatal values, so recovered panics can be checked too.
func IsFatal(err error) bool {
	return classOf(err) == ErrorFatal
}

// IsInvalid reports whether err was caused by invalid input or configuration.
// Bare invalid-input sentinels count as well.
func IsInvalid(err error) bool {
	if classOf(err) == ErrorInvalid {
		return true
	}
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidManifest) ||
		errors.Is(err, ErrParsingFailed)
}

// classOf returns the class of the outermost ClassifiedError in err's chain,
// or -1 if there is none.
func classOf(err error) ErrorClass {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	return -1
}

// newClassified creates a new classified error.
// Use WrapTransient(), WrapFatal(), or WrapInvalid() instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}
