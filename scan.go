package cascade

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Scan decodes the node's resolved subtree into a struct. Field names map via
// the "config" tag, falling back to case-insensitive field matching. Values
// resolve through the inheritance chain exactly as GetValue does; items
// without any resolvable value are skipped. Duration, time and comma-joined
// slice strings decode into their typed fields.
func (n *Node) Scan(target any) error {
	n.sync.mu.Lock()
	data := n.resolvedTreeLocked()
	n.sync.mu.Unlock()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "config",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: target,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return configErr("scan", n.path, err)
	}
	return nil
}

// resolvedTreeLocked flattens the subtree into nested maps of resolved
// values: the inherited node's tree first, overlaid with this node's own
// items and children. Requires the cluster lock.
func (n *Node) resolvedTreeLocked() map[string]any {
	var out map[string]any
	if n.inheritedFrom != nil {
		out = n.inheritedFrom.resolvedTreeLocked()
	} else {
		out = make(map[string]any)
	}

	for _, e := range n.items {
		if v, err := e.valueLocked(); err == nil {
			out[e.name] = v
		}
	}
	for _, c := range n.children {
		if sub := c.resolvedTreeLocked(); len(sub) > 0 {
			out[c.name] = sub
		}
	}
	return out
}
