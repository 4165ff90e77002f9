// Package cascade provides hierarchical, cascading configuration for Go
// applications: a tree of named nodes holding typed items, where any node may
// inherit from another node so that an unset item resolves to the value of the
// nearest inheritance ancestor that defines it.
//
// Features:
//   - Containment tree (namespacing) independent of the inheritance chain
//   - Typed items with optional values and comments
//   - Live change propagation to every derived node, with per-item callbacks
//     and a channel-based watch API
//   - Reset-to-inherited semantics for values and comments
//   - Pluggable persistence strategies; a file strategy for TOML, YAML and
//     JSON is included
//   - A global string converter registry with per-strategy overrides
//   - Struct scanning of resolved subtrees via mapstructure
//
// Quick start:
//
//	root, _ := cascade.NewRoot("Default", nil)
//	cascade.SetValue[string](root, "/Settings/Name", "Fancy Machine")
//
//	derived := cascade.NewDerived(root, nil)
//	cascade.SetItem[string](derived, "/Settings/Name")
//
//	name, _ := cascade.GetValue[string](derived, "/Settings/Name")
//	// name == "Fancy Machine"; later changes on root are visible on derived
//	// without any further calls.
//
// Paths are sequences of segments delimited by '/' or '\'. A literal
// delimiter inside a name must be escaped with a backslash; EscapeName does
// this for untrusted names.
//
// Thread safety:
// Every node in a containment+inheritance cluster shares one lock. All
// operations, including the full propagation fan-out and persistence
// strategy calls, run inside that critical section, so no two mutations in
// one cluster can interleave.
package cascade
