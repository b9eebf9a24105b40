package ecs

// Event is a generic ECS event payload.
type Event struct {
	Type string
	Data any
}

// EventContact is the Event type carrying a ContactEvent.
const EventContact = "contact"

// ContactEventKind identifies contact event phases.
type ContactEventKind string

const (
	ContactBegin    ContactEventKind = "begin"
	ContactSeparate ContactEventKind = "separate"
)

// ContactEvent is emitted by the physics world when two tagged shapes start
// or stop touching.
type ContactEvent struct {
	Kind ContactEventKind
	A, B Entity
	TagA string
	TagB string
}

// EventQueue is a simple FIFO queue.
type EventQueue struct {
	items []Event
}

// Push adds an event.
func (q *EventQueue) Push(evt Event) {
	if q == nil {
		return
	}
	q.items = append(q.items, evt)
}

// Drain returns all events and clears the queue.
func (q *EventQueue) Drain() []Event {
	if q == nil || len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// Len reports the number of pending events.
func (q *EventQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}

func (q *EventQueue) flush() {
	if q == nil {
		return
	}
	q.items = nil
}
