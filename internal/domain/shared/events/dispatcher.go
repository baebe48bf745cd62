package events

import "sync"

// Handler processes one event. Handlers run on the publisher's goroutine;
// slow work belongs on the subscriber's side.
type Handler func(event Event)

// Subscriber registers and removes handlers by event type.
type Subscriber interface {
	On(eventType Type, handler Handler) (unsubscribe func())
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(event Event)
}

// Dispatcher combines publisher and subscriber sides.
type Dispatcher interface {
	Publisher
	Subscriber
}

// InMemoryDispatcher is the process-local dispatcher wiring the channel
// client and sync services to UI subscribers.
type InMemoryDispatcher struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[Type]map[int]Handler
}

func NewInMemoryDispatcher() *InMemoryDispatcher {
	return &InMemoryDispatcher{
		handlers: make(map[Type]map[int]Handler),
	}
}

// On registers handler for eventType and returns its unsubscribe function.
func (d *InMemoryDispatcher) On(eventType Type, handler Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handlers[eventType] == nil {
		d.handlers[eventType] = make(map[int]Handler)
	}
	id := d.nextID
	d.nextID++
	d.handlers[eventType][id] = handler

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.handlers[eventType], id)
	}
}

// Publish invokes every handler registered for the event's type.
func (d *InMemoryDispatcher) Publish(event Event) {
	d.mu.RLock()
	handlers := make([]Handler, 0, len(d.handlers[event.EventType()]))
	for _, h := range d.handlers[event.EventType()] {
		handlers = append(handlers, h)
	}
	d.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
