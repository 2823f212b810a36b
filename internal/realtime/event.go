// Package realtime fans task mutations out to the connected sessions of
// the task's owner. Events travel over Redis pub/sub when it is configured
// and through the in-process Hub otherwise.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/taskflow/taskflow/internal/model"
)

// EventType names a task mutation.
type EventType string

const (
	TaskCreated EventType = "taskCreated"
	TaskUpdated EventType = "taskUpdated"
	TaskDeleted EventType = "taskDeleted"
)

// ErrUnknownEventType is returned when decoding an event type outside the enum.
var ErrUnknownEventType = errors.New("unknown event type")

// IsValid reports whether t is one of the known event types.
func (t EventType) IsValid() bool {
	switch t {
	case TaskCreated, TaskUpdated, TaskDeleted:
		return true
	}
	return false
}

// UnmarshalJSON rejects event types outside the enum.
func (t *EventType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !EventType(raw).IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, raw)
	}
	*t = EventType(raw)
	return nil
}

// Event is a task mutation addressed to the task's owner.
type Event struct {
	Type      EventType   `json:"type"`
	OwnerID   string      `json:"ownerId"`
	Task      *model.Task `json:"task,omitempty"`
	TaskID    string      `json:"taskId,omitempty"`
	EmittedAt time.Time   `json:"emittedAt"`
}

// NewTaskEvent builds a created or updated event carrying the full task.
func NewTaskEvent(typ EventType, task *model.Task) Event {
	return Event{
		Type:      typ,
		OwnerID:   task.OwnerID,
		Task:      task,
		TaskID:    task.ID,
		EmittedAt: time.Now().UTC(),
	}
}

// NewDeletedEvent builds a deleted event. Only the ids are kept.
func NewDeletedEvent(ownerID, taskID string) Event {
	return Event{
		Type:      TaskDeleted,
		OwnerID:   ownerID,
		TaskID:    taskID,
		EmittedAt: time.Now().UTC(),
	}
}

// deletedPayload is what clients receive for taskDeleted. It uses the same
// "id" key as task payloads so clients can remove items by data.id.
type deletedPayload struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
}

// Payload returns the client-facing data of the event.
func (e Event) Payload() any {
	if e.Type == TaskDeleted || e.Task == nil {
		return deletedPayload{ID: e.TaskID, OwnerID: e.OwnerID}
	}
	return e.Task
}

// Frame is a single message on a stream connection.
type Frame struct {
	Event EventType `json:"event"`
	Data  any       `json:"data"`
}

// Frame wraps the event for a stream connection.
func (e Event) Frame() Frame {
	return Frame{Event: e.Type, Data: e.Payload()}
}
