package notifier

import (
	"context"
	"sync"
)

// Registry maps clients to the handle of their live channel.
// Every mutation happens under one lock, so admissions and removals are
// linearizable and a client never has two bound handles.
type Registry struct {
	mu      sync.RWMutex
	handles map[ClientID]*Handle
	closed  bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[ClientID]*Handle)}
}

// Register binds h to id if no handle is bound yet. The first writer wins;
// later attempts get Conflict until the binding is removed.
func (r *Registry) Register(id ClientID, h *Handle) RegisterOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return Closed
	}
	if _, taken := r.handles[id]; taken {
		return Conflict
	}
	r.handles[id] = h
	return Admitted
}

// Deregister removes the binding of id only while it still points at h.
// A stale caller can therefore never remove a successor binding.
func (r *Registry) Deregister(id ClientID, h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.handles[id]; ok && cur == h {
		delete(r.handles, id)
	}
}

// Lookup returns the handle bound to id.
func (r *Registry) Lookup(id ClientID) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handles[id]
	return h, ok
}

// Len returns the number of bound clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Clients returns the bound client IDs in ascending order.
func (r *Registry) Clients() []ClientID {
	r.mu.RLock()
	ids := make([]ClientID, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	return sortedIDs(ids)
}

// Snapshot returns the handles whose client matches filter at this instant.
func (r *Registry) Snapshot(filter Filter) []*Handle {
	if filter == nil {
		filter = All()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Handle, 0, len(r.handles))
	for id, h := range r.handles {
		if filter(id) {
			out = append(out, h)
		}
	}
	return out
}

// Broadcast offers n to every handle matched by filter. The lock is held only
// while taking the snapshot; each handle applies its own backpressure.
// Handles that closed after the snapshot count as NoSuchClient. Once ctx is
// done the remaining recipients count as Dropped.
func (r *Registry) Broadcast(ctx context.Context, filter Filter, n Notification) BroadcastResult {
	var res BroadcastResult
	for _, h := range r.Snapshot(filter) {
		if err := ctx.Err(); err != nil {
			h.drop(dropCancelled, n, err)
			res.Dropped++
			continue
		}
		res.add(h.Send(ctx, n))
	}
	return res
}

// Closed reports whether Close has been called.
func (r *Registry) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// Close refuses further admissions and closes every bound handle's buffer.
// The forwarding loops deregister themselves as they terminate.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	for _, h := range handles {
		h.Close()
	}
}
