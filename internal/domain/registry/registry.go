// Package registry tracks which subject each live connection is currently
// requesting analysis for.
package registry

import (
	"sync"

	"github.com/ndiyar/vigil/internal/domain/model"
)

// Subscription describes one subject under a detection kind together with
// every connection currently watching it. Capacity is the value carried by
// the most recent frame for that subject (crowd only).
type Subscription struct {
	SubjectID string
	Capacity  int
	ConnIDs   []string
}

// binding is a connection's current subject for one kind.
type binding struct {
	subjectID string
	capacity  int
}

// Registry maps live connections to subjects per detection kind. A
// connection holds at most one binding per kind; the binding is re-established
// on every inbound frame, so capacity is always as fresh as the last frame.
//
// Bind and Drop are atomic with respect to ResolveTargets and Snapshot;
// frame-in and disconnect can race and must never deliver to a connection
// mid-teardown.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]map[model.Kind]binding
	// subjects[kind][subjectID] is the set of bound connections.
	subjects map[model.Kind]map[string]map[string]struct{}
	// capacities[kind][subjectID] is the capacity from the latest frame.
	capacities map[model.Kind]map[string]int
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byConn:     make(map[string]map[model.Kind]binding),
		subjects:   make(map[model.Kind]map[string]map[string]struct{}),
		capacities: make(map[model.Kind]map[string]int),
	}
}

// Bind records that connID is watching subjectID under kind, replacing any
// previous binding the connection held for that kind.
func (r *Registry) Bind(connID string, kind model.Kind, subjectID string, capacity int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byConn[connID][kind]; ok {
		r.removeLocked(connID, kind, prev.subjectID)
	}

	if r.byConn[connID] == nil {
		r.byConn[connID] = make(map[model.Kind]binding)
	}
	r.byConn[connID][kind] = binding{subjectID: subjectID, capacity: capacity}

	if r.subjects[kind] == nil {
		r.subjects[kind] = make(map[string]map[string]struct{})
	}
	if r.subjects[kind][subjectID] == nil {
		r.subjects[kind][subjectID] = make(map[string]struct{})
	}
	r.subjects[kind][subjectID][connID] = struct{}{}

	if r.capacities[kind] == nil {
		r.capacities[kind] = make(map[string]int)
	}
	r.capacities[kind][subjectID] = capacity
}

// Drop removes every binding held by connID. Called on disconnect so that
// in-flight or future results are no longer routed to the connection.
func (r *Registry) Drop(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for kind, b := range r.byConn[connID] {
		r.removeLocked(connID, kind, b.subjectID)
	}
	delete(r.byConn, connID)
}

// removeLocked detaches connID from a subject set, pruning empty sets.
// Caller must hold r.mu.
func (r *Registry) removeLocked(connID string, kind model.Kind, subjectID string) {
	set := r.subjects[kind][subjectID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.subjects[kind], subjectID)
		delete(r.capacities[kind], subjectID)
	}
	delete(r.byConn[connID], kind)
}

// ResolveTargets returns every connection currently bound to the subject.
// The bus result carries no correlation identifier, so a result is broadcast
// to all watchers of the subject, not only the connection that triggered the
// specific frame.
func (r *Registry) ResolveTargets(kind model.Kind, subjectID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.subjects[kind][subjectID]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for connID := range set {
		out = append(out, connID)
	}
	return out
}

// Snapshot returns every subject currently bound under kind with its
// watchers and latest capacity.
func (r *Registry) Snapshot(kind model.Kind) []Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]Subscription, 0, len(r.subjects[kind]))
	for subjectID, set := range r.subjects[kind] {
		s := Subscription{
			SubjectID: subjectID,
			Capacity:  r.capacities[kind][subjectID],
			ConnIDs:   make([]string, 0, len(set)),
		}
		for connID := range set {
			s.ConnIDs = append(s.ConnIDs, connID)
		}
		subs = append(subs, s)
	}
	return subs
}

// Connections returns the number of connections holding at least one binding.
func (r *Registry) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
