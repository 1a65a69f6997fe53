package domain

import "time"

// TaskRecord is the durable summary of a task that reached a terminal
// status. Records are write-once; the in-memory task store remains the
// authority while a task is live.
type TaskRecord struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	Kind         TaskKind   `json:"kind" gorm:"not null;index"`
	Input        string     `json:"input" gorm:"not null"`
	Output       string     `json:"output,omitempty"`
	Title        string     `json:"title,omitempty"`
	Format       string     `json:"format,omitempty"`
	SizeBytes    int64      `json:"size_bytes,omitempty"`
	Status       TaskStatus `json:"status" gorm:"not null;index"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   time.Time  `json:"finished_at"`
}

// NewTaskRecord builds the durable summary for a terminal task
func NewTaskRecord(t *Task) *TaskRecord {
	r := &TaskRecord{
		ID:           t.ID,
		Kind:         t.Kind,
		Input:        t.Input,
		Output:       t.Output,
		Status:       t.Status,
		ErrorMessage: t.ErrorMessage,
		CreatedAt:    t.CreatedAt,
		FinishedAt:   time.Now(),
	}
	if t.CompletedAt != nil {
		r.FinishedAt = *t.CompletedAt
	}
	if t.Metadata != nil {
		r.Title = t.Metadata.Title
		r.SizeBytes = t.Metadata.SizeBytes
	}
	if t.Options != nil {
		r.Format = string(t.Options.Format)
	}
	return r
}

// HistoryRepository is the persistence bridge: a durable record of tasks
// that reached a terminal status. Recording is fire-and-forget from the
// core's perspective; persistence failures never affect in-memory state.
type HistoryRepository interface {
	// RecordTerminal stores the summary of a task that reached a terminal status
	RecordTerminal(record *TaskRecord) error

	// FindByID finds a record by task id
	FindByID(id string) (*TaskRecord, error)

	// FindAll finds records with optional filters, newest first
	FindAll(filters map[string]interface{}) ([]*TaskRecord, error)

	// GetStats returns counts of recorded tasks by outcome
	GetStats() (*HistoryStats, error)
}

// HistoryStats represents counts of recorded terminal tasks
type HistoryStats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
}
