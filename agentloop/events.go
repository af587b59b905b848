package agentloop

import (
	"sync"
	"time"
)

// EventKind identifies the type of loop event.
type EventKind string

const (
	EventTaskStart          EventKind = "task_start"
	EventTaskEnd            EventKind = "task_end"
	EventActionStart        EventKind = "action_start"
	EventActionEnd          EventKind = "action_end"
	EventDiagnostic         EventKind = "diagnostic"
	EventRepeatedAction     EventKind = "repeated_action"
	EventValidationRejected EventKind = "validation_rejected"
)

// Event is a typed event emitted while a task runs. Data never carries tool
// output or conversation text; page snapshots can contain credentials.
type Event struct {
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	TaskID    string         `json:"task_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventEmitter delivers typed events to the host application via a channel.
type EventEmitter struct {
	taskID string
	ch     chan Event
	closed bool
	mu     sync.Mutex
}

// NewEventEmitter creates an EventEmitter with a buffered channel.
func NewEventEmitter(taskID string, bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{
		taskID: taskID,
		ch:     make(chan Event, bufferSize),
	}
}

// Emit sends an event to the channel. If the emitter is closed, the event
// is silently dropped.
func (e *EventEmitter) Emit(kind EventKind, data map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	event := Event{
		Kind:      kind,
		Timestamp: time.Now(),
		TaskID:    e.taskID,
		Data:      data,
	}
	select {
	case e.ch <- event:
	default:
		// Channel full; drop the event rather than block the loop.
	}
}

// Events returns the read-only event channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.ch
}

// Close closes the event channel. Safe to call multiple times.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
