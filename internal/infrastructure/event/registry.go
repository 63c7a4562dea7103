package event

import (
	"slices"
	"sort"
	"sync"

	"github.com/marketlevy/backend/internal/domain/shared"
)

// HandlerRegistry tracks which handlers receive which event types.
// Handlers come back in the order they first subscribed, so the audit
// trail is written before metrics are recorded when both listen.
type HandlerRegistry struct {
	mu   sync.RWMutex
	subs []subscription
}

type subscription struct {
	handler shared.EventHandler
	all     bool
	types   map[string]struct{}
}

func (s subscription) accepts(eventType string) bool {
	if s.all {
		return true
	}
	_, ok := s.types[eventType]
	return ok
}

// NewHandlerRegistry creates an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

// Register subscribes handler to eventTypes. With no types it receives every
// event. Registering the same handler again widens its subscription instead
// of delivering twice.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(handler)
	if idx < 0 {
		r.subs = append(r.subs, subscription{handler: handler, types: make(map[string]struct{})})
		idx = len(r.subs) - 1
	}

	sub := &r.subs[idx]
	if len(eventTypes) == 0 {
		sub.all = true
		return
	}
	for _, t := range eventTypes {
		sub.types[t] = struct{}{}
	}
}

// Unregister drops handler from every event type
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subs = slices.DeleteFunc(r.subs, func(s subscription) bool {
		return s.handler == handler
	})
}

// Handlers returns the handlers subscribed to eventType
func (r *HandlerRegistry) Handlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []shared.EventHandler
	for _, s := range r.subs {
		if s.accepts(eventType) {
			out = append(out, s.handler)
		}
	}
	return out
}

// All returns every registered handler once
func (r *HandlerRegistry) All() []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]shared.EventHandler, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s.handler)
	}
	return out
}

// EventTypes lists the explicitly subscribed event types, sorted
func (r *HandlerRegistry) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, s := range r.subs {
		for t := range s.types {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (r *HandlerRegistry) indexOf(handler shared.EventHandler) int {
	return slices.IndexFunc(r.subs, func(s subscription) bool {
		return s.handler == handler
	})
}
