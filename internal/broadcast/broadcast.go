// Package broadcast routes outbound events to the set of listeners
// subscribed to a key (a session id), decoupling who listens from who
// produced the event.
package broadcast

import "sync"

// Listener receives published events. Deliver must not block for long; the
// gateway implementation hands the event to a buffered per-connection
// writer.
type Listener[T any] interface {
	Deliver(event T)
}

type Groups[T any] struct {
	mu     sync.Mutex
	groups map[string]map[Listener[T]]struct{}
}

func NewGroups[T any]() *Groups[T] {
	return &Groups[T]{
		groups: make(map[string]map[Listener[T]]struct{}),
	}
}

func (g *Groups[T]) Subscribe(key string, l Listener[T]) {
	g.mu.Lock()
	defer g.mu.Unlock()

	members, ok := g.groups[key]
	if !ok {
		members = make(map[Listener[T]]struct{})
		g.groups[key] = members
	}
	members[l] = struct{}{}
}

func (g *Groups[T]) Unsubscribe(key string, l Listener[T]) {
	g.mu.Lock()
	defer g.mu.Unlock()

	members, ok := g.groups[key]
	if !ok {
		return
	}
	delete(members, l)
	if len(members) == 0 {
		delete(g.groups, key)
	}
}

// Publish delivers event to every listener currently subscribed to key. The
// member set is snapshotted so Deliver runs outside the lock.
func (g *Groups[T]) Publish(key string, event T) {
	g.mu.Lock()
	members := make([]Listener[T], 0, len(g.groups[key]))
	for l := range g.groups[key] {
		members = append(members, l)
	}
	g.mu.Unlock()

	for _, l := range members {
		l.Deliver(event)
	}
}

// DropGroup removes a key and all of its subscriptions, typically once the
// session it names has ended.
func (g *Groups[T]) DropGroup(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.groups, key)
}

// DropListener removes a listener from every group it joined. Used when a
// connection goes away.
func (g *Groups[T]) DropListener(l Listener[T]) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for key, members := range g.groups {
		delete(members, l)
		if len(members) == 0 {
			delete(g.groups, key)
		}
	}
}

func (g *Groups[T]) GroupSize(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.groups[key])
}
