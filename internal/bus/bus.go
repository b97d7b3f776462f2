// Package bus provides the async event bus that decouples store mutations
// from notification fan-out, group replication, and indexing.
package bus

import (
	"context"
	"sync"
	"time"
)

// Event topics published by the core services.
const (
	TopicTaskCreated      = "task.created"
	TopicTaskAssigned     = "task.assigned"
	TopicTaskCompleted    = "task.completed"
	TopicTaskFailed       = "task.failed"
	TopicGoalCompleted    = "goal.completed"
	TopicHabitCompleted   = "habit.completed"
	TopicWidgetVersion    = "widget.version"
	TopicWidgetRollback   = "widget.rollback"
	TopicEvolutionCreated = "evolution.created"
	TopicEvolutionApplied = "evolution.applied"
)

// Event is a record of something that happened in the system. RefType and
// RefID point at the store row the event concerns.
type Event struct {
	Topic     string         `json:"topic"`
	Hub       string         `json:"hub"`
	GroupID   string         `json:"group_id,omitempty"`
	RefType   string         `json:"ref_type"`
	RefID     string         `json:"ref_id"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventBus fans events out to subscribers. Publishing never blocks the
// caller as long as the dispatcher is running.
type EventBus struct {
	events chan *Event
	subs   map[string][]func(*Event)
	mu     sync.RWMutex
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		events: make(chan *Event, 100),
		subs:   make(map[string][]func(*Event)),
	}
}

// Publish queues an event for dispatch.
func (b *EventBus) Publish(ev *Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	b.events <- ev
}

// Subscribe registers a callback for a topic. Topic "*" receives every
// event.
func (b *EventBus) Subscribe(topic string, callback func(*Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[topic] = append(b.subs[topic], callback)
}

// Dispatch runs the event dispatcher. This should be run as a goroutine.
func (b *EventBus) Dispatch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-b.events:
			b.mu.RLock()
			callbacks := append([]func(*Event){}, b.subs[ev.Topic]...)
			callbacks = append(callbacks, b.subs["*"]...)
			b.mu.RUnlock()

			for _, cb := range callbacks {
				cb(ev)
			}
		}
	}
}
