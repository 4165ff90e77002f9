package cascade

import "sync"

// watchBuffer is the capacity of watch channels. Sends never block: a
// subscriber that falls this far behind drops notifications instead of
// stalling the cascade.
const watchBuffer = 16

// cluster is the synchronization domain shared by every node of one
// containment+inheritance cluster: a single lock plus the watch subscribers.
type cluster struct {
	mu sync.Mutex

	watchers    map[int64]chan string
	nextWatcher int64
}

func newCluster() *cluster {
	return &cluster{watchers: make(map[int64]chan string)}
}

// notifyPath delivers an item path to all watch subscribers. Requires the
// cluster lock.
func (c *cluster) notifyPath(path string) {
	for _, ch := range c.watchers {
		select {
		case ch <- path:
		default:
			// Subscriber is not keeping up; drop rather than block the
			// critical section.
		}
	}
}

// Watch returns a channel receiving the paths of items whose value or
// comment changes anywhere in this node's cluster, whether set directly or
// propagated through inheritance. Release the subscription with Unwatch.
func (n *Node) Watch() <-chan string {
	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()

	ch := make(chan string, watchBuffer)
	n.sync.nextWatcher++
	n.sync.watchers[n.sync.nextWatcher] = ch
	return ch
}

// Unwatch removes a subscription obtained from Watch and closes its channel.
func (n *Node) Unwatch(ch <-chan string) {
	n.sync.mu.Lock()
	defer n.sync.mu.Unlock()

	for id, c := range n.sync.watchers {
		if c == ch {
			delete(n.sync.watchers, id)
			close(c)
			return
		}
	}
}

// propagateValue fans a value change out to every node derived from n.
// Derived nodes whose same-named item already owns a value are skipped, as
// are those without the item. Receiving an inherited change counts as a
// modification so a later save with inherited settings captures the resolved
// cascade. Terminates because derivedBy edges are acyclic: the inheritance
// link is set once at construction and mirrors containment strictly
// downward. Requires the cluster lock.
func (n *Node) propagateValue(origin *entry) {
	for _, d := range n.derivedBy {
		e := d.findItem(origin.name)
		if e == nil || e.hasValue {
			continue
		}
		d.modified = true
		e.fireValueChanged(origin)
		d.propagateValue(origin)
	}
}

// propagateComment is the comment analog of propagateValue.
func (n *Node) propagateComment(origin *entry) {
	for _, d := range n.derivedBy {
		e := d.findItem(origin.name)
		if e == nil || e.hasComment {
			continue
		}
		d.modified = true
		e.fireCommentChanged(origin)
		d.propagateComment(origin)
	}
}
