package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/sonic-extract-go/internal/domain"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore()
	task := domain.NewDownloadTask("https://media.example.com/v/1")

	require.NoError(t, store.Create(task))

	got, err := store.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestStore_Create_DuplicateID(t *testing.T) {
	store := NewStore()
	task := domain.NewDownloadTask("https://media.example.com/v/1")

	require.NoError(t, store.Create(task))
	assert.Error(t, store.Create(task))
}

func TestStore_Get_NotFound(t *testing.T) {
	store := NewStore()

	_, err := store.Get("no-such-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Get_ReturnsSnapshot(t *testing.T) {
	store := NewStore()
	task := domain.NewDownloadTask("https://media.example.com/v/1")
	require.NoError(t, store.Create(task))

	got, err := store.Get(task.ID)
	require.NoError(t, err)
	got.Progress = 55

	again, err := store.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Progress, "mutating a snapshot must not touch the store")
}

func TestStore_List_CreationOrder(t *testing.T) {
	store := NewStore()
	var ids []string
	for i := 0; i < 5; i++ {
		task := domain.NewDownloadTask("https://media.example.com/v/n")
		require.NoError(t, store.Create(task))
		ids = append(ids, task.ID)
	}

	listed := store.List()
	require.Len(t, listed, 5)
	for i, task := range listed {
		assert.Equal(t, ids[i], task.ID)
	}
}

func TestStore_UpdateProgress(t *testing.T) {
	store := NewStore()
	task := domain.NewDownloadTask("https://media.example.com/v/1")
	require.NoError(t, store.Create(task))

	applied, err := store.UpdateProgress(task.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, applied)

	// equal report is a no-op, not an error
	_, err = store.UpdateProgress(task.ID, 40)
	assert.NoError(t, err)

	// regressive report is discarded
	_, err = store.UpdateProgress(task.ID, 30)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, _ := store.Get(task.ID)
	assert.Equal(t, 40, got.Progress)
}

func TestStore_UpdateProgress_CappedUntilCompletion(t *testing.T) {
	store := NewStore()
	task := domain.NewDownloadTask("https://media.example.com/v/1")
	require.NoError(t, store.Create(task))

	applied, err := store.UpdateProgress(task.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, 99, applied, "only completion may set progress to 100")
}

func TestStore_UpdateProgress_TerminalTask(t *testing.T) {
	store := NewStore()
	task := domain.NewDownloadTask("https://media.example.com/v/1")
	require.NoError(t, store.Create(task))

	_, err := store.SetStatus(task.ID, domain.StatusCancelled, nil)
	require.NoError(t, err)

	_, err = store.UpdateProgress(task.ID, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestStore_SetStatus(t *testing.T) {
	store := NewStore()
	task := domain.NewDownloadTask("https://media.example.com/v/1")
	require.NoError(t, store.Create(task))

	from, err := store.SetStatus(task.ID, domain.StatusActive, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, from)

	from, err = store.SetStatus(task.ID, domain.StatusCompleted, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, from)

	got, _ := store.Get(task.ID)
	assert.Equal(t, 100, got.Progress)
}

func TestStore_SetStatus_InvalidTransition(t *testing.T) {
	store := NewStore()
	task := domain.NewConversionTask("/in.mp4", "/out.mp3", domain.DefaultConversionOptions())
	require.NoError(t, store.Create(task))

	// conversions cannot pause
	_, err := store.SetStatus(task.ID, domain.StatusActive, nil)
	require.NoError(t, err)
	_, err = store.SetStatus(task.ID, domain.StatusPaused, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// terminal is final
	_, err = store.SetStatus(task.ID, domain.StatusFailed, errors.New("boom"))
	require.NoError(t, err)
	_, err = store.SetStatus(task.ID, domain.StatusActive, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestStore_SetStatus_FailedRecordsCause(t *testing.T) {
	store := NewStore()
	task := domain.NewDownloadTask("https://media.example.com/v/1")
	require.NoError(t, store.Create(task))

	_, err := store.SetStatus(task.ID, domain.StatusActive, nil)
	require.NoError(t, err)
	_, err = store.SetStatus(task.ID, domain.StatusFailed, errors.New("connection reset"))
	require.NoError(t, err)

	got, _ := store.Get(task.ID)
	assert.Equal(t, "connection reset", got.ErrorMessage)
}

func TestStore_SetResolved(t *testing.T) {
	store := NewStore()
	task := domain.NewDownloadTask("https://media.example.com/v/1")
	require.NoError(t, store.Create(task))

	meta := &domain.MediaMetadata{Title: "clip", SizeBytes: 2048, SourceFormat: "mp4"}
	require.NoError(t, store.SetResolved(task.ID, meta, "/downloads/clip.mp4"))

	got, _ := store.Get(task.ID)
	assert.Equal(t, "clip", got.Metadata.Title)
	assert.Equal(t, "/downloads/clip.mp4", got.Output)
}

func TestStore_OutputClaimed(t *testing.T) {
	store := NewStore()
	task := domain.NewConversionTask("/in.mp4", "/out.mp3", domain.DefaultConversionOptions())
	require.NoError(t, store.Create(task))

	assert.True(t, store.OutputClaimed("/out.mp3"))
	assert.False(t, store.OutputClaimed("/elsewhere.mp3"))
	assert.False(t, store.OutputClaimed(""))

	// terminal tasks release their claim
	_, err := store.SetStatus(task.ID, domain.StatusCancelled, nil)
	require.NoError(t, err)
	assert.False(t, store.OutputClaimed("/out.mp3"))
}
