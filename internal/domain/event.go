package domain

import "time"

// EventType identifies a task lifecycle notification
type EventType string

const (
	EventAdded         EventType = "added"
	EventProgress      EventType = "progress"
	EventStatusChanged EventType = "statusChanged"
	EventCompleted     EventType = "completed"
	EventFailed        EventType = "failed"
)

// Event is a lifecycle notification published on the event bus. Fields beyond
// Type and TaskID are populated per variant: Task for added, Progress for
// progress, From/To for statusChanged, Error for failed.
type Event struct {
	Type     EventType  `json:"type"`
	TaskID   string     `json:"task_id"`
	Task     *Task      `json:"task,omitempty"`
	Progress int        `json:"progress,omitempty"`
	From     TaskStatus `json:"from,omitempty"`
	To       TaskStatus `json:"to,omitempty"`
	Error    string     `json:"error,omitempty"`
	Time     time.Time  `json:"time"`
}
