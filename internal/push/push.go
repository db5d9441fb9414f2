// Package push defines the bidirectional event channel the client listens on
// and emits to.
package push

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// Handler receives the raw payload of one event.
type Handler func(payload json.RawMessage)

// Subscription identifies one registered handler. It is the only thing Off
// needs, so handler identity stays stable across re-subscription.
type Subscription uint64

// Emitter sends named events.
type Emitter interface {
	Emit(ctx context.Context, event string, payload any) error
}

// Listener registers handlers for named events.
type Listener interface {
	On(event string, h Handler) Subscription
	Off(event string, sub Subscription)
}

// Channel is a full push channel.
type Channel interface {
	Emitter
	Listener
}

// Registry is a handler table shared by channel implementations.
type Registry struct {
	mu       sync.RWMutex
	next     Subscription
	handlers map[string]map[Subscription]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]map[Subscription]Handler)}
}

// On registers h for event.
func (r *Registry) On(event string, h Handler) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	if _, ok := r.handlers[event]; !ok {
		r.handlers[event] = make(map[Subscription]Handler)
	}
	r.handlers[event][r.next] = h
	return r.next
}

// Off removes a handler. Unknown subscriptions are ignored.
func (r *Registry) Off(event string, sub Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hs, ok := r.handlers[event]; ok {
		delete(hs, sub)
		if len(hs) == 0 {
			delete(r.handlers, event)
		}
	}
}

// Count returns the number of handlers registered for event.
func (r *Registry) Count(event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[event])
}

// Dispatch calls the handlers of event in registration order and returns how
// many ran. Callers must dispatch from a single goroutine to keep FIFO order.
func (r *Registry) Dispatch(event string, payload json.RawMessage) int {
	r.mu.RLock()
	hs := r.handlers[event]
	subs := make([]Subscription, 0, len(hs))
	for sub := range hs {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i] < subs[j] })
	ordered := make([]Handler, 0, len(subs))
	for _, sub := range subs {
		ordered = append(ordered, hs[sub])
	}
	r.mu.RUnlock()

	for _, h := range ordered {
		h(payload)
	}
	return len(ordered)
}
