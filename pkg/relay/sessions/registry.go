// Package sessions tracks the set of live call sessions so shutdown can wait
// for in-progress calls and force-cancel the stragglers.
package sessions

import (
	"context"
	"sync"
)

// Handle is what the registry can do to a live session.
type Handle struct {
	Cancel func()
}

type Registry struct {
	mu       sync.Mutex
	sessions map[string]*tracked
	wg       sync.WaitGroup
}

type tracked struct {
	handle Handle
	once   sync.Once
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*tracked),
	}
}

// Register records a newly opened session keyed by its identity and returns
// the teardown function for connection close. Re-registering an identity
// finalizes the previous entry; concurrent opens on distinct identities are
// independent.
func (r *Registry) Register(sessionID string, h Handle) (unregister func()) {
	if r == nil {
		return func() {}
	}

	entry := &tracked{handle: h}

	r.mu.Lock()
	if r.sessions == nil {
		r.sessions = make(map[string]*tracked)
	}
	old := r.sessions[sessionID]
	r.sessions[sessionID] = entry
	r.wg.Add(1)
	r.mu.Unlock()

	if old != nil {
		r.unregister(sessionID, old)
	}

	return func() { r.unregister(sessionID, entry) }
}

func (r *Registry) unregister(sessionID string, entry *tracked) {
	if r == nil || entry == nil {
		return
	}
	entry.once.Do(func() {
		r.mu.Lock()
		if r.sessions != nil && r.sessions[sessionID] == entry {
			delete(r.sessions, sessionID)
		}
		r.mu.Unlock()
		r.wg.Done()
	})
}

func (r *Registry) Count() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CancelAll cancels every live session. Used after the drain grace period
// expires.
func (r *Registry) CancelAll() (canceled int) {
	if r == nil {
		return 0
	}

	var cancels []func()
	r.mu.Lock()
	for _, entry := range r.sessions {
		if entry == nil || entry.handle.Cancel == nil {
			continue
		}
		cancels = append(cancels, entry.handle.Cancel)
	}
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
		canceled++
	}
	return canceled
}

// Wait blocks until all registered sessions have been finalized or ctx
// expires; it reports whether the registry fully drained.
func (r *Registry) Wait(ctx context.Context) bool {
	if r == nil {
		return true
	}
	if ctx == nil {
		r.wg.Wait()
		return true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
