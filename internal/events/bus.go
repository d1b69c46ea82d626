// internal/events/bus.go
package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"gcu-service/internal/model"
)

// Publisher accepts events for distribution
type Publisher interface {
	Publish(event model.Event)
}

type subscription struct {
	ch    chan model.Event
	types map[model.EventType]bool
}

// EventBus manages event distribution
type EventBus struct {
	subscribers map[int]*subscription
	nextID      int
	events      chan model.Event
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[int]*subscription),
		events:      make(chan model.Event, 1000),
		logger:      logger,
	}
}

// Start distributes events until ctx is done, then closes every subscriber
func (eb *EventBus) Start(ctx context.Context) {
	defer eb.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-eb.events:
			eb.distributeEvent(event)
		}
	}
}

// Publish publishes an event without blocking
func (eb *EventBus) Publish(event model.Event) {
	select {
	case eb.events <- event:
	default:
		eb.logger.Warn("Event bus full, dropping event",
			zap.String("event_type", string(event.Type)),
		)
	}
}

// Subscribe returns a channel receiving events of the given types, or of
// every type when none are given, and a function that cancels it.
func (eb *EventBus) Subscribe(types ...model.EventType) (<-chan model.Event, func()) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	sub := &subscription{ch: make(chan model.Event, 100)}
	if len(types) > 0 {
		sub.types = make(map[model.EventType]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}

	id := eb.nextID
	eb.nextID++
	eb.subscribers[id] = sub

	return sub.ch, func() { eb.unsubscribe(id) }
}

func (eb *EventBus) unsubscribe(id int) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if sub, ok := eb.subscribers[id]; ok {
		delete(eb.subscribers, id)
		close(sub.ch)
	}
}

// distributeEvent distributes an event to subscribers
func (eb *EventBus) distributeEvent(event model.Event) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	for _, sub := range eb.subscribers {
		if sub.types != nil && !sub.types[event.Type] {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}

func (eb *EventBus) closeAll() {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	for id, sub := range eb.subscribers {
		delete(eb.subscribers, id)
		close(sub.ch)
	}
}
