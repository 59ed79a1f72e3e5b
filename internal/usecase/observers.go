package usecase

import (
	"sync"

	"FinScan/internal/domain/service"
)

// NamedObserver pairs an observer with the name it was registered under.
type NamedObserver struct {
	Name     string
	Observer service.ResultObserver
}

// ObserverRegistry holds result observers in registration order. Scans take
// a snapshot when they start, so changes apply to the next scan.
type ObserverRegistry struct {
	mu      sync.RWMutex
	entries []NamedObserver
}

func NewObserverRegistry() *ObserverRegistry {
	return &ObserverRegistry{}
}

// Register adds an observer, replacing any observer with the same name.
func (r *ObserverRegistry) Register(name string, o service.ResultObserver) {
	if o == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.Name == name {
			r.entries[i].Observer = o
			return
		}
	}
	r.entries = append(r.entries, NamedObserver{Name: name, Observer: o})
}

// Unregister removes the named observer and reports whether it was present.
func (r *ObserverRegistry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.Name == name {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot copies the current observer list.
func (r *ObserverRegistry) Snapshot() []NamedObserver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]NamedObserver, len(r.entries))
	copy(out, r.entries)
	return out
}

// Names lists registered observer names in order.
func (r *ObserverRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Name
	}
	return out
}
