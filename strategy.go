package cascade

import "reflect"

// SaveFlags controls what a save persists.
type SaveFlags int

const (
	// SaveDefault persists only items that hold their own value.
	SaveDefault SaveFlags = 0

	// SaveInherited additionally persists the currently resolved inherited
	// value for items without their own.
	SaveInherited SaveFlags = 1 << iota
)

// Strategy is the persistence contract consumed by the core. Implementations
// provide naming rules, type gates and the actual storage I/O.
//
// Load, LoadItem and Save are invoked with the cluster lock held; inside
// them, use the node's LoadChild/LoadSetting/SaveChildren/SaveSettings
// accessors and the setting's LoadValue/LoadComment/PersistentValue/
// PersistentComment accessors rather than the public locking API.
type Strategy interface {
	// IsValidConfigurationName reports whether a name may be used for a node.
	IsValidConfigurationName(name string) bool

	// IsValidItemName reports whether a name may be used for an item.
	IsValidItemName(name string) bool

	// SupportsType reports whether values of the type can be stored.
	SupportsType(t reflect.Type) bool

	// SupportsComments reports whether the backend can store item comments.
	SupportsComments() bool

	// IsAssignable reports whether this specific value may be assigned to an
	// item of the declared type. DefaultAssignable is the usual policy.
	IsAssignable(t reflect.Type, value any) bool

	// Load populates a node subtree's items from backing storage.
	Load(n *Node) error

	// LoadItem populates a single newly created item from backing storage.
	// Backends that only load whole subtrees may treat this as a no-op.
	LoadItem(s Setting) error

	// Save persists a node subtree.
	Save(n *Node, flags SaveFlags) error
}

// DefaultAssignable is the default assignability policy: the value's runtime
// type must equal the declared type exactly, and nil is rejected.
func DefaultAssignable(t reflect.Type, value any) bool {
	return value != nil && reflect.TypeOf(value) == t
}
