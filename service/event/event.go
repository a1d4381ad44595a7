package event

import (
	"time"

	"github.com/viant/whenly/internal/clock"
)

// Lifecycle event types published by the scheduler.
const (
	TypeScheduled = "scheduled"
	TypeReady     = "ready"
	TypeStarted   = "started"
	TypeCompleted = "completed"
	TypeFailed    = "failed"
)

// Context describes the behavior a lifecycle event refers to.
type Context struct {
	BehaviorID  string   `json:"behaviorID"`
	Behavior    string   `json:"behavior,omitempty"`
	Cowns       []uint64 `json:"cowns,omitempty"`
	EventType   string   `json:"eventType"`
	TimeTakenMs int      `json:"timeTakenMs,omitempty"`
}

// Event carries one typed payload together with its behavior context.
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: clock.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
