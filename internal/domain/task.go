package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current status of a task
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusActive    TaskStatus = "active"
	StatusPaused    TaskStatus = "paused" // downloads only
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusCancelled TaskStatus = "cancelled"
)

// TaskKind represents the kind of work a task performs
type TaskKind string

const (
	KindDownload   TaskKind = "download"
	KindConversion TaskKind = "conversion"
)

// Task represents one unit of orchestrated work: a media download or an
// audio conversion. The task store owns the authoritative copy; everything
// handed to workers or API callers is a snapshot.
type Task struct {
	ID       string     `json:"id"`
	Kind     TaskKind   `json:"kind"`
	Input    string     `json:"input"`            // source URL (download) or input file path (conversion)
	Output   string     `json:"output,omitempty"` // destination path, unset for downloads until resolved
	Progress int        `json:"progress"`         // 0-100, never decreases while the task lives
	Status   TaskStatus `json:"status"`

	Options  *ConversionOptions `json:"options,omitempty"`
	Metadata *MediaMetadata     `json:"metadata,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`

	// ResumeOffset is the byte offset a paused download reached; handed back
	// to the transfer worker on resume.
	ResumeOffset int64 `json:"resume_offset,omitempty"`
	// RestartFallback is set when a resume could not continue from the prior
	// offset and the transfer restarted from the beginning.
	RestartFallback bool `json:"restart_fallback,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewDownloadTask creates a new download task for a remote media reference
func NewDownloadTask(reference string) *Task {
	now := time.Now()
	return &Task{
		ID:        uuid.New().String(),
		Kind:      KindDownload,
		Input:     reference,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewConversionTask creates a new conversion task for a local media file
func NewConversionTask(inputPath, outputPath string, options ConversionOptions) *Task {
	now := time.Now()
	opts := options
	return &Task{
		ID:        uuid.New().String(),
		Kind:      KindConversion,
		Input:     inputPath,
		Output:    outputPath,
		Options:   &opts,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanTransition reports whether a task of the given kind may move from one
// status to another. Conversions have no paused state; terminal statuses
// permit no further transitions.
func CanTransition(kind TaskKind, from, to TaskStatus) bool {
	switch from {
	case StatusPending:
		// pending→failed covers resolution failures, which terminate a
		// download before it ever occupies a slot as active
		return to == StatusActive || to == StatusCancelled || to == StatusFailed
	case StatusActive:
		switch to {
		case StatusCompleted, StatusFailed, StatusCancelled:
			return true
		case StatusPaused:
			return kind == KindDownload
		}
		return false
	case StatusPaused:
		return kind == KindDownload && (to == StatusActive || to == StatusCancelled)
	default:
		// completed, failed, cancelled
		return false
	}
}

// IsTerminal checks if the task is in a terminal status
func (t *Task) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed || t.Status == StatusCancelled
}

// MarkActive marks the task as active
func (t *Task) MarkActive() {
	now := time.Now()
	t.Status = StatusActive
	if t.StartedAt == nil {
		t.StartedAt = &now
	}
	t.UpdatedAt = now
}

// MarkPaused marks the task as paused at the given byte offset
func (t *Task) MarkPaused(offset int64) {
	t.Status = StatusPaused
	t.ResumeOffset = offset
	t.UpdatedAt = time.Now()
}

// MarkCompleted marks the task as completed with full progress
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = StatusCompleted
	t.Progress = 100
	t.ErrorMessage = ""
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// MarkFailed marks the task as failed with the given error
func (t *Task) MarkFailed(err error) {
	now := time.Now()
	t.Status = StatusFailed
	t.ErrorMessage = err.Error()
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// MarkCancelled marks the task as cancelled
func (t *Task) MarkCancelled() {
	now := time.Now()
	t.Status = StatusCancelled
	t.ErrorMessage = ""
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// Clone returns a deep copy of the task for handing to readers and events
func (t *Task) Clone() *Task {
	c := *t
	if t.Options != nil {
		opts := *t.Options
		c.Options = &opts
	}
	if t.Metadata != nil {
		meta := *t.Metadata
		c.Metadata = &meta
	}
	if t.StartedAt != nil {
		started := *t.StartedAt
		c.StartedAt = &started
	}
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		c.CompletedAt = &completed
	}
	return &c
}

// ValidateKind checks if a task kind is valid
func ValidateKind(kind TaskKind) bool {
	return kind == KindDownload || kind == KindConversion
}
