package cascade

import "reflect"

// typeFor returns the reflect.Type of T, including interface types.
func typeFor[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// SetItem returns the item of type T at the given path, creating it without a
// value if necessary. Intermediate nodes are materialized along the way. An
// existing item of a different type is a type-mismatch error. A freshly
// created item is offered to the persistence strategy so backends that load
// per item can populate it.
func SetItem[T any](n *Node, path string) (Item[T], error) {
	segments, err := splitPath(path)
	if err != nil {
		return Item[T]{}, err
	}

	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()

	e, err := setItemEntry(n, segments, typeFor[T]())
	if err != nil {
		return Item[T]{}, err
	}
	return Item[T]{e}, nil
}

// SetValue assigns a value at the given path, creating the item and any
// intermediate nodes as needed. When the persistence strategy rejects the
// value for a freshly created item, the item is removed again and the node is
// left unchanged.
func SetValue[T any](n *Node, path string, value T) (Item[T], error) {
	segments, err := splitPath(path)
	if err != nil {
		return Item[T]{}, err
	}

	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()

	e, err := setValueEntry(n, segments, typeFor[T](), value)
	if err != nil {
		return Item[T]{}, err
	}
	return Item[T]{e}, nil
}

// GetValue resolves the value of type T at the given path, following the
// inheritance chain for items without an own value. Unresolved lookups fail
// with ErrNoValue; an item of a different type fails with ErrTypeMismatch
// regardless of whether it holds a value.
func GetValue[T any](n *Node, path string) (T, error) {
	return getValue[T](n, path, true)
}

// LocalValue is GetValue without inheritance: only values owned by nodes of
// this tree resolve.
func LocalValue[T any](n *Node, path string) (T, error) {
	return getValue[T](n, path, false)
}

func getValue[T any](n *Node, path string, inherit bool) (T, error) {
	var zero T
	segments, err := splitPath(path)
	if err != nil {
		return zero, err
	}

	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()

	v, err := getValueSegments(n, segments, typeFor[T](), inherit)
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// GetItem returns the item of type T at the given path, following the
// inheritance chain. Absence is soft: the second return is false and the
// error nil. An item of a different type is a type-mismatch error.
func GetItem[T any](n *Node, path string) (Item[T], bool, error) {
	return findItemOf[T](n, path, needItem)
}

// GetItemWithValue is GetItem restricted to items that hold their own value.
func GetItemWithValue[T any](n *Node, path string) (Item[T], bool, error) {
	return findItemOf[T](n, path, needValue)
}

// GetItemWithComment is GetItem restricted to items that hold their own
// comment.
func GetItemWithComment[T any](n *Node, path string) (Item[T], bool, error) {
	return findItemOf[T](n, path, needComment)
}

// Comment resolves the comment at the given path, following the inheritance
// chain. Absence is soft, not an error.
func (n *Node) Comment(path string) (string, bool, error) {
	segments, err := splitPath(path)
	if err != nil {
		return "", false, err
	}

	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()

	c, ok := getCommentSegments(n, segments, true)
	return c, ok, nil
}

// setItemEntry descends into (creating as needed) the child nodes for all but
// the last segment, then gets or creates the item. Requires the cluster lock.
func setItemEntry(n *Node, segments []string, t reflect.Type) (*entry, error) {
	if len(segments) > 1 {
		if s := n.strategy; s != nil && !s.IsValidConfigurationName(segments[0]) {
			return nil, configErr("set item", segments[0], ErrInvalidName)
		}
		return setItemEntry(n.childLocked(segments[0], true), segments[1:], t)
	}

	name := segments[0]
	if e := n.findItem(name); e != nil {
		if e.typ != t {
			return nil, configErr("set item", e.path, ErrTypeMismatch)
		}
		return e, nil
	}

	if s := n.strategy; s != nil {
		if !s.IsValidItemName(name) {
			return nil, configErr("set item", name, ErrInvalidName)
		}
		if !s.SupportsType(t) {
			return nil, configErr("set item", joinPath(n.path, name), ErrUnsupportedType)
		}
	}

	e := newEntry(n, name, t)
	n.items = append(n.items, e)
	n.modified = true

	// Loading the stored value is distinct from mutation and does not dirty
	// the node further; the strategy populates the item best-effort.
	if s := n.strategy; s != nil {
		if err := s.LoadItem(e); err != nil {
			return nil, configErr("load item", e.path, err)
		}
	}
	return e, nil
}

// setValueEntry is setItemEntry followed by assignment, with the speculative
// item add rolled back when the strategy rejects this specific value.
// Requires the cluster lock.
func setValueEntry(n *Node, segments []string, t reflect.Type, value any) (*entry, error) {
	if len(segments) > 1 {
		if s := n.strategy; s != nil && !s.IsValidConfigurationName(segments[0]) {
			return nil, configErr("set value", segments[0], ErrInvalidName)
		}
		return setValueEntry(n.childLocked(segments[0], true), segments[1:], t, value)
	}

	name := segments[0]
	if e := n.findItem(name); e != nil {
		if e.typ != t {
			return nil, configErr("set value", e.path, ErrTypeMismatch)
		}
		if err := e.setValueLocked(value); err != nil {
			return nil, err
		}
		return e, nil
	}

	if s := n.strategy; s != nil {
		if !s.IsValidItemName(name) {
			return nil, configErr("set value", name, ErrInvalidName)
		}
		if !s.SupportsType(t) {
			return nil, configErr("set value", joinPath(n.path, name), ErrUnsupportedType)
		}
	}

	e := newEntry(n, name, t)
	n.items = append(n.items, e)
	wasModified := n.modified
	n.modified = true

	if err := e.setValueLocked(value); err != nil {
		// Roll back the speculative add so the node is left unchanged.
		n.items = n.items[:len(n.items)-1]
		e.node = nil
		n.modified = wasModified
		return nil, err
	}
	return e, nil
}

// getValueSegments resolves a value along path segments. A missing
// intermediate child does not re-split the path: resolution dives into the
// inherited node with the same remaining segments, matching the behavior the
// containment/inheritance mirror guarantees for materialized children.
func getValueSegments(n *Node, segments []string, t reflect.Type, inherit bool) (any, error) {
	if len(segments) == 1 {
		name := segments[0]
		if e := n.findItem(name); e != nil {
			if e.typ != t {
				return nil, configErr("get value", e.path, ErrTypeMismatch)
			}
			if e.hasValue {
				return e.value, nil
			}
		}
		if inherit && n.inheritedFrom != nil {
			return getValueSegments(n.inheritedFrom, segments, t, inherit)
		}
		return nil, configErr("get value", joinPath(n.path, name), ErrNoValue)
	}

	if child := n.findChild(segments[0]); child != nil {
		return getValueSegments(child, segments[1:], t, inherit)
	}
	if inherit && n.inheritedFrom != nil {
		return getValueSegments(n.inheritedFrom, segments, t, inherit)
	}
	return nil, configErr("get value", joinPath(n.path, segments[0]), ErrNoValue)
}

func getCommentSegments(n *Node, segments []string, inherit bool) (string, bool) {
	if len(segments) == 1 {
		if e := n.findItem(segments[0]); e != nil && e.hasComment {
			return e.comment, true
		}
		if inherit && n.inheritedFrom != nil {
			return getCommentSegments(n.inheritedFrom, segments, inherit)
		}
		return "", false
	}

	if child := n.findChild(segments[0]); child != nil {
		return getCommentSegments(child, segments[1:], inherit)
	}
	if inherit && n.inheritedFrom != nil {
		return getCommentSegments(n.inheritedFrom, segments, inherit)
	}
	return "", false
}

// need selects which items count as usable for a lookup.
type need int

const (
	needItem need = iota
	needValue
	needComment
)

func findItemOf[T any](n *Node, path string, what need) (Item[T], bool, error) {
	segments, err := splitPath(path)
	if err != nil {
		return Item[T]{}, false, err
	}

	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()

	e, err := getEntrySegments(n, segments, typeFor[T](), true, what)
	if err != nil {
		return Item[T]{}, false, err
	}
	if e == nil {
		return Item[T]{}, false, nil
	}
	return Item[T]{e}, true, nil
}

func getEntrySegments(n *Node, segments []string, t reflect.Type, inherit bool, what need) (*entry, error) {
	if len(segments) == 1 {
		if e := n.findItem(segments[0]); e != nil {
			if e.typ != t {
				return nil, configErr("get item", e.path, ErrTypeMismatch)
			}
			switch what {
			case needItem:
				return e, nil
			case needValue:
				if e.hasValue {
					return e, nil
				}
			case needComment:
				if e.hasComment {
					return e, nil
				}
			}
		}
		if inherit && n.inheritedFrom != nil {
			return getEntrySegments(n.inheritedFrom, segments, t, inherit, what)
		}
		return nil, nil
	}

	if child := n.findChild(segments[0]); child != nil {
		return getEntrySegments(child, segments[1:], t, inherit, what)
	}
	if inherit && n.inheritedFrom != nil {
		return getEntrySegments(n.inheritedFrom, segments, t, inherit, what)
	}
	return nil, nil
}
