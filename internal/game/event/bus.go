package event

import "sync"

// Bus fans each event out synchronously to the sinks subscribed to its type
// and to those subscribed to every type. Subscribers are called in
// subscription order.
// All methods are safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	byType map[Type][]Sink
	all    []Sink
}

// NewBus creates a Bus with no subscribers.
func NewBus() *Bus {
	return &Bus{byType: make(map[Type][]Sink)}
}

// Subscribe registers s for the given types, or for every type when none are given.
//
// Precondition: s must not be nil.
func (b *Bus) Subscribe(s Sink, types ...Type) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(types) == 0 {
		b.all = append(b.all, s)
		return
	}
	for _, t := range types {
		b.byType[t] = append(b.byType[t], s)
	}
}

// Emit implements Sink.
func (b *Bus) Emit(e Event) {
	b.mu.RLock()
	targets := make([]Sink, 0, len(b.byType[e.Type])+len(b.all))
	targets = append(targets, b.byType[e.Type]...)
	targets = append(targets, b.all...)
	b.mu.RUnlock()

	for _, s := range targets {
		s.Emit(e)
	}
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Emit implements Sink.
func (f SinkFunc) Emit(e Event) { f(e) }
