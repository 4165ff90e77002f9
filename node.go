package cascade

import (
	"reflect"
	"strings"
)

// clearedName marks nodes removed by Clear so stale references identify
// themselves.
const clearedName = "<cleared>"

// Node is a configuration tree node. It owns its child nodes and items,
// optionally inherits unset values from another node, and tracks the set of
// nodes deriving from it for change propagation.
//
// A node created as a child shares its parent's lock domain and persistence
// strategy; a node created by inheriting shares the inherited node's lock
// domain. The whole containment+inheritance cluster therefore serializes on
// a single lock.
type Node struct {
	sync *cluster

	name string
	path string

	parent   *Node
	children []*Node

	inheritedFrom *Node
	derivedBy     []*Node

	strategy Strategy
	items    []*entry
	modified bool
}

// NewRoot creates a root node with no inheritance link, a fresh lock domain
// and an optional persistence strategy.
func NewRoot(name string, s Strategy) (*Node, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyPath
	}
	if s != nil && !s.IsValidConfigurationName(name) {
		return nil, configErr("create configuration", name, ErrInvalidName)
	}
	return &Node{
		sync:     newCluster(),
		name:     name,
		path:     "/",
		strategy: s,
	}, nil
}

// NewDerived creates a root node that inherits every unset item from another
// node. Name and path are copied from the inherited node, the lock domain is
// shared with it, and the new node registers itself for change propagation.
func NewDerived(from *Node, s Strategy) *Node {
	from.sync.mu.Lock()
	defer from.sync.mu.Unlock()

	n := &Node{
		sync:          from.sync,
		name:          from.name,
		path:          from.path,
		inheritedFrom: from,
		strategy:      s,
	}
	from.derivedBy = append(from.derivedBy, n)
	return n
}

// newChild materializes a child node. If this node inherits from another, the
// child's own inheritance mirror is obtained by getting-or-creating the
// same-named child under the inherited node, so inheritance structure always
// mirrors containment structure. Requires the cluster lock.
func (n *Node) newChild(name string) *Node {
	c := &Node{
		sync:     n.sync,
		name:     name,
		path:     joinPath(n.path, name),
		parent:   n,
		strategy: n.strategy,
	}
	n.children = append(n.children, c)

	if n.inheritedFrom != nil {
		mirror := n.inheritedFrom.childLocked(name, true)
		c.inheritedFrom = mirror
		mirror.derivedBy = append(mirror.derivedBy, c)
	}
	return c
}

func (n *Node) findChild(name string) *Node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (n *Node) findItem(name string) *entry {
	for _, e := range n.items {
		if e.name == name {
			return e
		}
	}
	return nil
}

// childLocked gets or creates the immediate child with the given name.
// Requires the cluster lock.
func (n *Node) childLocked(name string, create bool) *Node {
	if c := n.findChild(name); c != nil {
		return c
	}
	if !create {
		return nil
	}
	return n.newChild(name)
}

// Child returns the node at the given path below this node. With create set,
// missing nodes along the path are materialized; otherwise absence is
// reported as a nil node, not an error. A nil or blank path is an argument
// error.
func (n *Node) Child(path string, create bool) (*Node, error) {
	segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()
	return n.childSegments(segments, create)
}

func (n *Node) childSegments(segments []string, create bool) (*Node, error) {
	child := n.findChild(segments[0])
	if child == nil {
		if !create {
			return nil, nil
		}
		if s := n.strategy; s != nil && !s.IsValidConfigurationName(segments[0]) {
			return nil, configErr("create child configuration", segments[0], ErrInvalidName)
		}
		child = n.newChild(segments[0])
	}
	if len(segments) == 1 {
		return child, nil
	}
	return child.childSegments(segments[1:], create)
}

// Name returns the node name, unique among its siblings.
func (n *Node) Name() string { return n.name }

// Path returns the slash-delimited path from the containment root, with
// escaped segment names. Roots report "/".
func (n *Node) Path() string { return n.path }

// Parent returns the containment parent, nil for roots.
func (n *Node) Parent() *Node {
	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()
	return n.parent
}

// InheritedFrom returns the node supplying fallback values, if any.
func (n *Node) InheritedFrom() *Node {
	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()
	return n.inheritedFrom
}

// Strategy returns the assigned persistence strategy, if any.
func (n *Node) Strategy() Strategy { return n.strategy }

// Children returns a snapshot of the child nodes.
func (n *Node) Children() []*Node {
	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()
	return append([]*Node(nil), n.children...)
}

// Items returns a snapshot of the node's items as type-erased settings.
func (n *Node) Items() []Setting {
	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()
	return n.settingsLocked()
}

func (n *Node) settingsLocked() []Setting {
	items := make([]Setting, len(n.items))
	for i, e := range n.items {
		items[i] = e
	}
	return items
}

// RemoveItem detaches the named item from this node. The item object stays
// alive for callers still holding it but becomes inert. Reports whether an
// item was removed.
func (n *Node) RemoveItem(name string) bool {
	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()

	for i, e := range n.items {
		if e.name == name {
			n.items = append(n.items[:i], n.items[i+1:]...)
			e.node = nil
			n.modified = true
			return true
		}
	}
	return false
}

// Clear recursively detaches all descendant nodes and all items of the
// subtree. Cleared nodes are tombstoned and unregistered from their
// inheritance links so no dangling notification targets remain.
func (n *Node) Clear() {
	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()
	n.clearLocked()
}

func (n *Node) clearLocked() {
	had := len(n.children) > 0 || len(n.items) > 0

	for _, c := range n.children {
		c.clearLocked()
		c.name = clearedName
		c.parent = nil
		if c.inheritedFrom != nil {
			c.inheritedFrom.removeDerived(c)
			c.inheritedFrom = nil
		}
	}
	n.children = nil

	for _, e := range n.items {
		e.node = nil
	}
	n.items = nil

	if had {
		n.modified = true
	}
}

func (n *Node) removeDerived(d *Node) {
	for i, x := range n.derivedBy {
		if x == d {
			n.derivedBy = append(n.derivedBy[:i], n.derivedBy[i+1:]...)
			return
		}
	}
}

// ResetItems resets every item of this node, and with recursive set of the
// whole subtree, to its inherited value. Items without an own value are left
// alone. The first failure stops the walk.
func (n *Node) ResetItems(recursive bool) error {
	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()
	return n.resetItemsLocked(recursive)
}

func (n *Node) resetItemsLocked(recursive bool) error {
	for _, e := range n.items {
		if !e.hasValue {
			continue
		}
		if err := e.resetValueLocked(); err != nil {
			return err
		}
	}
	if recursive {
		for _, c := range n.children {
			if err := c.resetItemsLocked(recursive); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsModified reports whether this node or any descendant carries unsaved
// changes. The answer is recomputed on every call, never cached.
func (n *Node) IsModified() bool {
	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()
	return n.isModifiedLocked()
}

func (n *Node) isModifiedLocked() bool {
	if n.modified {
		return true
	}
	for _, c := range n.children {
		if c.isModifiedLocked() {
			return true
		}
	}
	return false
}

// SetModified sets the node's own dirty flag; clearing clears the whole
// subtree.
func (n *Node) SetModified(modified bool) {
	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()
	if modified {
		n.modified = true
		return
	}
	n.clearModifiedLocked()
}

func (n *Node) clearModifiedLocked() {
	n.modified = false
	for _, c := range n.children {
		c.clearModifiedLocked()
	}
}

// Load populates this subtree from the persistence strategy and clears the
// modification state. It fails when no strategy is assigned.
func (n *Node) Load() error {
	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()

	if n.strategy == nil {
		return configErr("load", n.path, ErrNoStrategy)
	}
	if err := n.strategy.Load(n); err != nil {
		return configErr("load", n.path, err)
	}
	n.clearModifiedLocked()
	return nil
}

// Save persists this subtree through the persistence strategy and clears the
// modification state. It fails when no strategy is assigned.
func (n *Node) Save(flags SaveFlags) error {
	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()

	if n.strategy == nil {
		return configErr("save", n.path, ErrNoStrategy)
	}
	if err := n.strategy.Save(n, flags); err != nil {
		return configErr("save", n.path, err)
	}
	n.clearModifiedLocked()
	return nil
}

// Strategy-facing accessors. Strategy.Load, Strategy.LoadItem and
// Strategy.Save run with the cluster lock held, so these do not lock and
// must only be called from inside those callbacks.

// LoadChild gets or creates the immediate child with the given name without
// touching the modification state. For Strategy implementations only.
func (n *Node) LoadChild(name string) (*Node, error) {
	if s := n.strategy; s != nil && !s.IsValidConfigurationName(name) {
		return nil, configErr("load child", name, ErrInvalidName)
	}
	return n.childLocked(name, true), nil
}

// LoadSetting gets or creates an item of the given runtime type without
// touching the modification state. An existing item of a different type is a
// type-mismatch error. For Strategy implementations only.
func (n *Node) LoadSetting(name string, t reflect.Type) (Setting, error) {
	if e := n.findItem(name); e != nil {
		if e.typ != t {
			return nil, configErr("load item", e.path, ErrTypeMismatch)
		}
		return e, nil
	}
	if s := n.strategy; s != nil && !s.IsValidItemName(name) {
		return nil, configErr("load item", name, ErrInvalidName)
	}
	e, err := newEntryForType(n, name, t)
	if err != nil {
		return nil, err
	}
	n.items = append(n.items, e)
	return e, nil
}

// SaveChildren returns the child nodes for traversal during a save. For
// Strategy implementations only.
func (n *Node) SaveChildren() []*Node {
	return append([]*Node(nil), n.children...)
}

// SaveSettings returns the node's items for traversal during a save. For
// Strategy implementations only.
func (n *Node) SaveSettings() []Setting {
	return n.settingsLocked()
}
