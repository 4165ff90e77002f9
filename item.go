package cascade

import (
	"reflect"
)

// Setting is the type-erased view of a configuration item: a single named,
// typed cell holding an optional value and an optional comment. Typed access
// goes through Item[T]; path-based, type-erased callers use this interface.
//
// All accessors serialize on the owning cluster's lock except the identity
// accessors (Name, Path, Type), which are immutable after construction, and
// the Load*/Persistent* methods, which exist for Strategy implementations
// and run inside a Load or Save critical section.
type Setting interface {
	// Name returns the item name, unique within its node.
	Name() string
	// Path returns the full slash-delimited item path with escaped segments.
	Path() string
	// Type returns the item's declared type, fixed for the item's lifetime.
	Type() reflect.Type
	// Node returns the owning node, or nil once the item has been removed.
	Node() *Node

	// HasValue reports whether the item holds its own value (as opposed to
	// resolving one through inheritance).
	HasValue() bool
	// HasComment reports whether the item holds its own comment.
	HasComment() bool

	// Value returns the item's own value, or the value resolved through the
	// owning node's inheritance chain. It fails with ErrNoValue when neither
	// exists.
	Value() (any, error)
	// SetValue assigns a value after a runtime check against the declared
	// type and the strategy's assignability gate.
	SetValue(v any) error
	// ResetValue clears the item's own value so it tracks the inherited one
	// again. It fails when nothing upstream supplies a fallback.
	ResetValue() error

	// Comment returns the item's own comment or the inherited one; absence
	// is soft, not an error.
	Comment() (string, bool)
	// SetComment assigns a comment; it fails when the strategy does not
	// support comments.
	SetComment(c string) error
	// ResetComment clears the item's own comment. Unlike ResetValue it never
	// fails; with no inherited comment the item simply has none.
	ResetComment()

	// OnValueChanged registers a callback fired inside the cluster critical
	// section whenever this item's effective value changes, with the
	// originating item as issuer. The lock is held during the callback:
	// read the issuer through Name, Path, Type, PersistentValue and
	// PersistentComment, never through the locking API.
	OnValueChanged(fn func(issuer Setting))
	// OnCommentChanged is the comment analog of OnValueChanged.
	OnCommentChanged(fn func(issuer Setting))

	// LoadValue populates the value from backing storage without marking the
	// node modified or firing events. For Strategy implementations only.
	LoadValue(v any) error
	// LoadComment populates the comment from backing storage. For Strategy
	// implementations only.
	LoadComment(c string)
	// PersistentValue returns the value a save should record under the given
	// flags: the own value, or the resolved inherited value when
	// SaveInherited is set. For Strategy implementations only.
	PersistentValue(flags SaveFlags) (any, bool)
	// PersistentComment returns the item's own comment for saving. For
	// Strategy implementations only.
	PersistentComment() (string, bool)
}

// entry is the single concrete item cell. Item[T] and Setting are facades
// over it.
type entry struct {
	sync *cluster // retained after detachment so accessors stay safe
	node *Node    // nil once removed from its node
	name string
	path string
	typ  reflect.Type

	value    any
	hasValue bool

	comment    string
	hasComment bool

	valueChanged   []func(Setting)
	commentChanged []func(Setting)
}

func newEntry(n *Node, name string, t reflect.Type) *entry {
	return &entry{
		sync: n.sync,
		node: n,
		name: name,
		path: joinPath(n.path, name),
		typ:  t,
	}
}

func (e *entry) Name() string       { return e.name }
func (e *entry) Path() string       { return e.path }
func (e *entry) Type() reflect.Type { return e.typ }

func (e *entry) Node() *Node {
	e.sync.mu.Lock()
	defer e.sync.mu.Unlock()
	return e.node
}

func (e *entry) HasValue() bool {
	e.sync.mu.Lock()
	defer e.sync.mu.Unlock()
	return e.hasValue
}

func (e *entry) HasComment() bool {
	e.sync.mu.Lock()
	defer e.sync.mu.Unlock()
	return e.hasComment
}

func (e *entry) Value() (any, error) {
	e.sync.mu.Lock()
	defer e.sync.mu.Unlock()
	return e.valueLocked()
}

func (e *entry) valueLocked() (any, error) {
	if e.hasValue {
		return e.value, nil
	}
	if e.node == nil {
		return nil, configErr("get value", e.path, ErrNoValue)
	}
	fallback, err := findInheritedValue(e.node, e.name, e.typ)
	if err != nil {
		return nil, err
	}
	return fallback.value, nil
}

func (e *entry) SetValue(v any) error {
	e.sync.mu.Lock()
	defer e.sync.mu.Unlock()

	if v == nil || reflect.TypeOf(v) != e.typ {
		return configErr("set value", e.path, ErrTypeMismatch)
	}
	return e.setValueLocked(v)
}

// setValueLocked stores a value, fires the item's change event with itself as
// issuer and drives propagation to derived nodes. Requires the cluster lock.
func (e *entry) setValueLocked(v any) error {
	if e.node == nil {
		return configErr("set value", e.path, ErrDetached)
	}
	if s := e.node.strategy; s != nil && !s.IsAssignable(e.typ, v) {
		return configErr("set value", e.path, ErrNotAssignable)
	}

	if e.hasValue && reflect.DeepEqual(e.value, v) {
		return nil
	}

	e.value = v
	e.hasValue = true
	e.node.modified = true

	e.fireValueChanged(e)
	e.sync.notifyPath(e.path)
	e.node.propagateValue(e)
	return nil
}

func (e *entry) ResetValue() error {
	e.sync.mu.Lock()
	defer e.sync.mu.Unlock()
	return e.resetValueLocked()
}

func (e *entry) resetValueLocked() error {
	if !e.hasValue {
		return nil
	}
	if e.node == nil {
		return configErr("reset value", e.path, ErrDetached)
	}
	if e.node.inheritedFrom == nil {
		return configErr("reset value", e.path, ErrNoInheritedValue)
	}
	fallback, err := findInheritedValue(e.node, e.name, e.typ)
	if err != nil {
		return err
	}

	e.hasValue = false
	e.value = reflect.Zero(e.typ).Interface()
	e.node.modified = true

	e.fireValueChanged(fallback)
	e.sync.notifyPath(e.path)
	e.node.propagateValue(fallback)
	return nil
}

func (e *entry) Comment() (string, bool) {
	e.sync.mu.Lock()
	defer e.sync.mu.Unlock()
	return e.commentLocked()
}

func (e *entry) commentLocked() (string, bool) {
	if e.hasComment {
		return e.comment, true
	}
	if e.node == nil {
		return "", false
	}
	if fallback := findInheritedComment(e.node, e.name); fallback != nil {
		return fallback.comment, true
	}
	return "", false
}

func (e *entry) SetComment(c string) error {
	e.sync.mu.Lock()
	defer e.sync.mu.Unlock()
	return e.setCommentLocked(c)
}

func (e *entry) setCommentLocked(c string) error {
	if e.node == nil {
		return configErr("set comment", e.path, ErrDetached)
	}
	if s := e.node.strategy; s != nil && !s.SupportsComments() {
		return configErr("set comment", e.path, ErrCommentsUnsupported)
	}

	if e.hasComment && e.comment == c {
		return nil
	}

	e.comment = c
	e.hasComment = true
	e.node.modified = true

	e.fireCommentChanged(e)
	e.sync.notifyPath(e.path)
	e.node.propagateComment(e)
	return nil
}

func (e *entry) ResetComment() {
	e.sync.mu.Lock()
	defer e.sync.mu.Unlock()
	e.resetCommentLocked()
}

func (e *entry) resetCommentLocked() {
	if !e.hasComment {
		return
	}

	e.comment = ""
	e.hasComment = false

	if e.node == nil {
		return
	}
	e.node.modified = true

	issuer := findInheritedComment(e.node, e.name)
	if issuer == nil {
		issuer = e
	}
	e.fireCommentChanged(issuer)
	e.sync.notifyPath(e.path)
	e.node.propagateComment(issuer)
}

func (e *entry) OnValueChanged(fn func(Setting)) {
	e.sync.mu.Lock()
	defer e.sync.mu.Unlock()
	e.valueChanged = append(e.valueChanged, fn)
}

func (e *entry) OnCommentChanged(fn func(Setting)) {
	e.sync.mu.Lock()
	defer e.sync.mu.Unlock()
	e.commentChanged = append(e.commentChanged, fn)
}

func (e *entry) fireValueChanged(issuer *entry) {
	for _, fn := range e.valueChanged {
		fn(issuer)
	}
}

func (e *entry) fireCommentChanged(issuer *entry) {
	for _, fn := range e.commentChanged {
		fn(issuer)
	}
}

func (e *entry) LoadValue(v any) error {
	if v == nil || reflect.TypeOf(v) != e.typ {
		return configErr("load item", e.path, ErrTypeMismatch)
	}
	e.value = v
	e.hasValue = true
	return nil
}

func (e *entry) LoadComment(c string) {
	e.comment = c
	e.hasComment = true
}

func (e *entry) PersistentValue(flags SaveFlags) (any, bool) {
	if e.hasValue {
		return e.value, true
	}
	if flags&SaveInherited == 0 || e.node == nil {
		return nil, false
	}
	fallback, err := findInheritedValue(e.node, e.name, e.typ)
	if err != nil {
		return nil, false
	}
	return fallback.value, true
}

func (e *entry) PersistentComment() (string, bool) {
	return e.comment, e.hasComment
}

// findInheritedValue walks the inheritance chain starting above n for an item
// of the given name that has its own value. A same-named item of a different
// type is an integrity error, not a silent skip.
func findInheritedValue(n *Node, name string, typ reflect.Type) (*entry, error) {
	for p := n.inheritedFrom; p != nil; p = p.inheritedFrom {
		if e := p.findItem(name); e != nil {
			if e.typ != typ {
				return nil, configErr("get value", joinPath(p.path, name), ErrTypeMismatch)
			}
			if e.hasValue {
				return e, nil
			}
		}
	}
	return nil, configErr("get value", joinPath(n.path, name), ErrNoValue)
}

// findInheritedComment is the comment analog of findInheritedValue; absence
// is soft, so it returns nil instead of an error.
func findInheritedComment(n *Node, name string) *entry {
	for p := n.inheritedFrom; p != nil; p = p.inheritedFrom {
		if e := p.findItem(name); e != nil && e.hasComment {
			return e
		}
	}
	return nil
}

// Item is the typed facade over a configuration item. Two Item values are
// equal iff they refer to the same underlying item.
type Item[T any] struct {
	e *entry
}

// Setting returns the type-erased view of the item.
func (it Item[T]) Setting() Setting { return it.e }

// Name returns the item name.
func (it Item[T]) Name() string { return it.e.name }

// Path returns the full item path.
func (it Item[T]) Path() string { return it.e.path }

// Node returns the owning node, or nil once the item has been removed.
func (it Item[T]) Node() *Node { return it.e.Node() }

// HasValue reports whether the item holds its own value.
func (it Item[T]) HasValue() bool { return it.e.HasValue() }

// HasComment reports whether the item holds its own comment.
func (it Item[T]) HasComment() bool { return it.e.HasComment() }

// Value returns the item's own value or the one resolved through the
// inheritance chain.
func (it Item[T]) Value() (T, error) {
	v, err := it.e.Value()
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// SetValue assigns the item's own value and propagates the change to every
// derived node still tracking the inherited value.
func (it Item[T]) SetValue(v T) error {
	it.e.sync.mu.Lock()
	defer it.e.sync.mu.Unlock()
	return it.e.setValueLocked(v)
}

// ResetValue clears the item's own value so it tracks the inherited value
// again.
func (it Item[T]) ResetValue() error { return it.e.ResetValue() }

// Comment returns the item's own or inherited comment.
func (it Item[T]) Comment() (string, bool) { return it.e.Comment() }

// SetComment assigns the item's comment.
func (it Item[T]) SetComment(c string) error { return it.e.SetComment(c) }

// ResetComment clears the item's own comment.
func (it Item[T]) ResetComment() { it.e.ResetComment() }

// OnValueChanged registers a synchronous change callback.
func (it Item[T]) OnValueChanged(fn func(issuer Setting)) { it.e.OnValueChanged(fn) }

// OnCommentChanged registers a synchronous comment change callback.
func (it Item[T]) OnCommentChanged(fn func(issuer Setting)) { it.e.OnCommentChanged(fn) }
