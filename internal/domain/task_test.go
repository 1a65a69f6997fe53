package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDownloadTask(t *testing.T) {
	task := NewDownloadTask("https://media.example.com/v/abc123")

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, KindDownload, task.Kind)
	assert.Equal(t, "https://media.example.com/v/abc123", task.Input)
	assert.Empty(t, task.Output, "destination is unset until resolved")
	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, 0, task.Progress)
}

func TestNewConversionTask(t *testing.T) {
	opts := ConversionOptions{Format: FormatMP3, BitrateKbps: 320}
	task := NewConversionTask("/tmp/in.mp4", "/tmp/out.mp3", opts)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, KindConversion, task.Kind)
	assert.Equal(t, "/tmp/in.mp4", task.Input)
	assert.Equal(t, "/tmp/out.mp3", task.Output)
	assert.Equal(t, StatusPending, task.Status)
	assert.NotNil(t, task.Options)
	assert.Equal(t, FormatMP3, task.Options.Format)
}

func TestTaskIDs_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		task := NewDownloadTask("https://media.example.com/v/x")
		assert.False(t, seen[task.ID], "task id reused")
		seen[task.ID] = true
	}
}

func TestCanTransition_Conversion(t *testing.T) {
	tests := []struct {
		name     string
		from, to TaskStatus
		allowed  bool
	}{
		{"pending to active", StatusPending, StatusActive, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending to failed", StatusPending, StatusFailed, true},
		{"pending to completed", StatusPending, StatusCompleted, false},
		{"active to completed", StatusActive, StatusCompleted, true},
		{"active to failed", StatusActive, StatusFailed, true},
		{"active to cancelled", StatusActive, StatusCancelled, true},
		{"active to paused", StatusActive, StatusPaused, false},
		{"completed to active", StatusCompleted, StatusActive, false},
		{"failed to active", StatusFailed, StatusActive, false},
		{"cancelled to pending", StatusCancelled, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(KindConversion, tt.from, tt.to))
		})
	}
}

func TestCanTransition_Download(t *testing.T) {
	tests := []struct {
		name     string
		from, to TaskStatus
		allowed  bool
	}{
		{"active to paused", StatusActive, StatusPaused, true},
		{"paused to active", StatusPaused, StatusActive, true},
		{"paused to cancelled", StatusPaused, StatusCancelled, true},
		{"paused to completed", StatusPaused, StatusCompleted, false},
		{"paused to pending", StatusPaused, StatusPending, false},
		{"completed to paused", StatusCompleted, StatusPaused, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(KindDownload, tt.from, tt.to))
		})
	}
}

func TestTask_MarkActive(t *testing.T) {
	task := NewDownloadTask("https://media.example.com/v/x")

	task.MarkActive()

	assert.Equal(t, StatusActive, task.Status)
	assert.NotNil(t, task.StartedAt)

	// resuming keeps the original start time
	started := *task.StartedAt
	task.MarkPaused(1024)
	task.MarkActive()
	assert.Equal(t, started, *task.StartedAt)
}

func TestTask_MarkPaused(t *testing.T) {
	task := NewDownloadTask("https://media.example.com/v/x")
	task.MarkActive()

	task.MarkPaused(4096)

	assert.Equal(t, StatusPaused, task.Status)
	assert.Equal(t, int64(4096), task.ResumeOffset)
}

func TestTask_MarkCompleted(t *testing.T) {
	task := NewDownloadTask("https://media.example.com/v/x")
	task.MarkActive()
	task.Progress = 97

	task.MarkCompleted()

	assert.Equal(t, StatusCompleted, task.Status)
	assert.Equal(t, 100, task.Progress, "completed implies full progress")
	assert.Empty(t, task.ErrorMessage)
	assert.NotNil(t, task.CompletedAt)
}

func TestTask_MarkFailed(t *testing.T) {
	task := NewDownloadTask("https://media.example.com/v/x")
	task.MarkActive()

	task.MarkFailed(errors.New("connection reset"))

	assert.Equal(t, StatusFailed, task.Status)
	assert.Equal(t, "connection reset", task.ErrorMessage)
}

func TestTask_MarkCancelled_ClearsError(t *testing.T) {
	task := NewDownloadTask("https://media.example.com/v/x")
	task.ErrorMessage = "stale"

	task.MarkCancelled()

	assert.Equal(t, StatusCancelled, task.Status)
	assert.Empty(t, task.ErrorMessage, "error is present only on failed tasks")
}

func TestTask_IsTerminal(t *testing.T) {
	task := NewDownloadTask("https://media.example.com/v/x")

	assert.False(t, task.IsTerminal())

	task.Status = StatusActive
	assert.False(t, task.IsTerminal())

	task.Status = StatusPaused
	assert.False(t, task.IsTerminal())

	for _, s := range []TaskStatus{StatusCompleted, StatusFailed, StatusCancelled} {
		task.Status = s
		assert.True(t, task.IsTerminal())
	}
}

func TestTask_Clone(t *testing.T) {
	task := NewConversionTask("/tmp/in.mp4", "/tmp/out.mp3", DefaultConversionOptions())
	task.Metadata = &MediaMetadata{Title: "clip"}

	clone := task.Clone()
	clone.Options.BitrateKbps = 128
	clone.Metadata.Title = "changed"
	clone.Progress = 50

	assert.Equal(t, 320, task.Options.BitrateKbps, "clone must not share options")
	assert.Equal(t, "clip", task.Metadata.Title, "clone must not share metadata")
	assert.Equal(t, 0, task.Progress)
}

func TestNewTaskRecord(t *testing.T) {
	task := NewDownloadTask("https://media.example.com/v/abc")
	task.Metadata = &MediaMetadata{Title: "Some Clip", SizeBytes: 1 << 20}
	task.Output = "/downloads/some-clip.mp4"
	task.MarkActive()
	task.MarkCompleted()

	record := NewTaskRecord(task)

	assert.Equal(t, task.ID, record.ID)
	assert.Equal(t, KindDownload, record.Kind)
	assert.Equal(t, "Some Clip", record.Title)
	assert.Equal(t, int64(1<<20), record.SizeBytes)
	assert.Equal(t, StatusCompleted, record.Status)
	assert.Equal(t, *task.CompletedAt, record.FinishedAt)
}
