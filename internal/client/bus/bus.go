package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/medkeeper/internal/logging"
)

type Handler func(Event)

// Publisher is the side of the bus producers depend on.
type Publisher interface {
	Publish(e Event) int
}

type subscriber struct {
	id int
	fn Handler
}

type Bus struct {
	log logging.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[string][]subscriber
}

func New(log logging.Logger) *Bus {
	return &Bus{log: log, subs: make(map[string][]subscriber)}
}

// Subscription is returned by Subscribe; Unsubscribe is safe to call more
// than once.
type Subscription struct {
	bus  *Bus
	name string
	id   int
	once sync.Once
}

func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() { s.bus.remove(s.name, s.id) })
}

// Subscribe registers fn for events named name.
func (b *Bus) Subscribe(name string, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscriber{id: id, fn: fn})
	return &Subscription{bus: b, name: name, id: id}
}

// On subscribes a typed handler to the event type T.
func On[T Event](b *Bus, fn func(T)) *Subscription {
	var zero T
	return b.Subscribe(zero.Name(), func(e Event) {
		if ev, ok := e.(T); ok {
			fn(ev)
		}
	})
}

// Publish delivers e to the current subscribers and returns how many were
// called.
func (b *Bus) Publish(e Event) int {
	b.mu.RLock()
	handlers := make([]subscriber, len(b.subs[e.Name()]))
	copy(handlers, b.subs[e.Name()])
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(e, h)
	}
	return len(handlers)
}

// Subscribers returns the number of handlers registered for name.
func (b *Bus) Subscribers(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

func (b *Bus) deliver(e Event, h subscriber) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error(context.Background(), "bus handler panicked",
				"event", e.Name(), "version", e.Version(), "subscriber", h.id, "panic", fmt.Sprint(r))
		}
	}()
	h.fn(e)
}

func (b *Bus) remove(name string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[name]
	for i, s := range list {
		if s.id == id {
			b.subs[name] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[name]) == 0 {
		delete(b.subs, name)
	}
}
