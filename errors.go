package cascade

import (
	"errors"
	"fmt"
)

// Argument errors. These indicate misuse of the API and are returned
// directly, never wrapped in a ConfigError.
var (
	// ErrEmptyPath indicates a nil, empty or blank path was supplied to an
	// operation that requires one.
	ErrEmptyPath = errors.New("path must not be empty")
)

// Domain error causes. All core-level failures surface as a *ConfigError
// wrapping one of these sentinels, so callers can match with errors.Is on
// either the kind or the cause.
var (
	// ErrTypeMismatch indicates an existing item's declared type differs from
	// the requested or supplied type.
	ErrTypeMismatch = errors.New("item type mismatch")

	// ErrNoValue indicates an item has no value and no inheritance fallback
	// supplies one.
	ErrNoValue = errors.New("item has no value")

	// ErrUnsupportedType indicates the persistence strategy rejects the type.
	ErrUnsupportedType = errors.New("type not supported by persistence strategy")

	// ErrNotAssignable indicates the persistence strategy rejects a specific
	// value for an item's declared type.
	ErrNotAssignable = errors.New("value not assignable to item type")

	// ErrNoStrategy indicates Load or Save was invoked on a node without a
	// persistence strategy.
	ErrNoStrategy = errors.New("no persistence strategy assigned")

	// ErrCommentsUnsupported indicates the persistence strategy does not
	// support comments.
	ErrCommentsUnsupported = errors.New("persistence strategy does not support comments")

	// ErrNoInheritedValue indicates a reset was requested but nothing
	// upstream in the inheritance chain can supply a fallback value.
	ErrNoInheritedValue = errors.New("no inherited value to reset to")

	// ErrDetached indicates an operation on an item that was removed from
	// its node.
	ErrDetached = errors.New("item is detached from its configuration")

	// ErrInvalidName indicates a path segment violates the persistence
	// strategy's naming rules.
	ErrInvalidName = errors.New("invalid name")

	// ErrStoreNotFound indicates the backing store for a persistence
	// strategy does not exist.
	ErrStoreNotFound = errors.New("configuration store not found")
)

// ConfigError is the single configuration-domain error kind. It carries the
// failed operation, the path or name involved, and the underlying cause.
type ConfigError struct {
	Op   string // operation that failed, e.g. "set value"
	Path string // item or node path involved
	Err  error  // underlying cause, usually one of the sentinels above
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("cascade: %s %q: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("cascade: %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// configErr wraps a cause into the uniform domain error kind.
func configErr(op, path string, err error) error {
	return &ConfigError{Op: op, Path: path, Err: err}
}
