// Package providertest contains in-memory wallet providers for tests.
package providertest

import (
	"sync"

	"github.com/yolodolo42/walletconnector/internal/provider"
)

// Emitter is a listener registry with a subscription-count probe.
type Emitter struct {
	mu        sync.Mutex
	listeners map[string][]*provider.Listener
}

func (e *Emitter) On(event string, l *provider.Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[string][]*provider.Listener)
	}
	e.listeners[event] = append(e.listeners[event], l)
}

func (e *Emitter) RemoveListener(event string, l *provider.Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ls := e.listeners[event]
	for i, existing := range ls {
		if existing == l {
			e.listeners[event] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// Emit delivers an event to a snapshot of the current listeners.
func (e *Emitter) Emit(event string, args ...any) {
	e.mu.Lock()
	ls := append([]*provider.Listener(nil), e.listeners[event]...)
	e.mu.Unlock()
	for _, l := range ls {
		l.Emit(args...)
	}
}

// ListenerCount returns the number of listeners for the given events, or
// for all events when none are given.
func (e *Emitter) ListenerCount(events ...string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(events) == 0 {
		n := 0
		for _, ls := range e.listeners {
			n += len(ls)
		}
		return n
	}
	n := 0
	for _, ev := range events {
		n += len(e.listeners[ev])
	}
	return n
}
