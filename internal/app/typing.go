package app

import (
	"sync"

	"github.com/dkeye/Courier/internal/core"
)

// Typing tracks which connections currently signal "typing". It is a
// set, not a counter: typing is boolean per connection. Usernames are
// resolved at read time so the registry stays the single source of
// identity truth.
type Typing struct {
	mu       sync.Mutex
	registry *Registry
	set      map[core.ConnID]struct{}
}

func NewTyping(registry *Registry) *Typing {
	return &Typing{
		registry: registry,
		set:      make(map[core.ConnID]struct{}),
	}
}

// Set flips a connection's typing state. Connections without a live
// session are ignored; removing an absent entry is a no-op. The second
// return reports whether a broadcastable change happened.
func (t *Typing) Set(cid core.ConnID, isTyping bool) ([]string, bool) {
	if _, ok := t.registry.Resolve(cid); !ok {
		return nil, false
	}
	t.mu.Lock()
	if isTyping {
		t.set[cid] = struct{}{}
	} else {
		delete(t.set, cid)
	}
	t.mu.Unlock()
	return t.List(), true
}

// Clear drops a connection on disconnect, same as typing=false.
func (t *Typing) Clear(cid core.ConnID) []string {
	t.mu.Lock()
	delete(t.set, cid)
	t.mu.Unlock()
	return t.List()
}

// List aggregates the current typers' usernames in roster order.
func (t *Typing) List() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.set))
	for _, sess := range t.registry.Snapshot() {
		if _, ok := t.set[core.ConnID(sess.ID)]; ok {
			names = append(names, sess.Username)
		}
	}
	return names
}
