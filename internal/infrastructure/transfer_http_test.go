package infrastructure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/sonic-extract-go/internal/domain"
)

func newTestTransfer(t *testing.T) *HTTPTransferWorker {
	t.Helper()
	config := &domain.TransferConfig{ChunkSize: 8, Timeout: 2 * time.Second}
	return NewHTTPTransferWorker(config, zap.NewNop())
}

// rangeServer serves content with range request support
func rangeServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "clip.bin", time.Unix(0, 0), strings.NewReader(content))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestTransfer_CompletesAndPromotesStagingFile(t *testing.T) {
	content := strings.Repeat("abcdefgh", 16)
	server := rangeServer(t, content)
	destination := filepath.Join(t.TempDir(), "out", "clip.bin")

	var progress []int
	cb := domain.TransferCallbacks{OnProgress: func(p int) { progress = append(progress, p) }}
	req := domain.TransferRequest{TaskID: "t1", Reference: server.URL, Destination: destination}

	err := newTestTransfer(t).Run(context.Background(), req, make(chan struct{}), cb)
	require.NoError(t, err)

	data, err := os.ReadFile(destination)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	_, err = os.Stat(destination + ".part")
	assert.True(t, os.IsNotExist(err), "staging file must be promoted away")

	require.NotEmpty(t, progress)
	assert.Equal(t, 100, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
}

func TestTransfer_ResumesFromOffset(t *testing.T) {
	content := strings.Repeat("abcdefgh", 16)
	var gotRange string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		http.ServeContent(w, r, "clip.bin", time.Unix(0, 0), strings.NewReader(content))
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "clip.bin")
	offset := int64(32)
	require.NoError(t, os.WriteFile(destination+".part", []byte(content[:offset]), 0644))

	req := domain.TransferRequest{
		TaskID:       "t1",
		Reference:    server.URL,
		Destination:  destination,
		ResumeOffset: offset,
	}
	err := newTestTransfer(t).Run(context.Background(), req, make(chan struct{}), domain.TransferCallbacks{})
	require.NoError(t, err)

	assert.Equal(t, "bytes=32-", gotRange)
	data, err := os.ReadFile(destination)
	require.NoError(t, err)
	assert.Equal(t, content, string(data), "resumed transfer must yield the full file")
}

func TestTransfer_RestartFallbackWhenRangeIgnored(t *testing.T) {
	content := strings.Repeat("abcdefgh", 16)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// plain 200 regardless of the Range header
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(content))
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "clip.bin")
	offset := int64(32)
	require.NoError(t, os.WriteFile(destination+".part", []byte(content[:offset]), 0644))

	var fellBack bool
	cb := domain.TransferCallbacks{OnResumeFallback: func() { fellBack = true }}
	req := domain.TransferRequest{
		TaskID:       "t1",
		Reference:    server.URL,
		Destination:  destination,
		ResumeOffset: offset,
	}
	err := newTestTransfer(t).Run(context.Background(), req, make(chan struct{}), cb)
	require.NoError(t, err)

	assert.True(t, fellBack, "worker must report the restart")
	data, err := os.ReadFile(destination)
	require.NoError(t, err)
	assert.Equal(t, content, string(data), "restarted transfer must not duplicate bytes")
}

func TestTransfer_StaleStagingFileStartsOver(t *testing.T) {
	content := strings.Repeat("abcdefgh", 16)
	var gotRange string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		http.ServeContent(w, r, "clip.bin", time.Unix(0, 0), strings.NewReader(content))
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "clip.bin")
	// staging file size disagrees with the recorded offset
	require.NoError(t, os.WriteFile(destination+".part", []byte("xx"), 0644))

	req := domain.TransferRequest{
		TaskID:       "t1",
		Reference:    server.URL,
		Destination:  destination,
		ResumeOffset: 32,
	}
	err := newTestTransfer(t).Run(context.Background(), req, make(chan struct{}), domain.TransferCallbacks{})
	require.NoError(t, err)

	assert.Empty(t, gotRange, "mismatched staging file must not be continued")
	data, err := os.ReadFile(destination)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestTransfer_PauseAcknowledged(t *testing.T) {
	content := strings.Repeat("abcdefgh", 16)
	server := rangeServer(t, content)
	destination := filepath.Join(t.TempDir(), "clip.bin")
	offset := int64(32)
	require.NoError(t, os.WriteFile(destination+".part", []byte(content[:offset]), 0644))

	pause := make(chan struct{})
	close(pause)

	var ackOffset int64
	var ackResumable bool
	cb := domain.TransferCallbacks{OnPauseAck: func(o int64, resumable bool) {
		ackOffset = o
		ackResumable = resumable
	}}
	req := domain.TransferRequest{
		TaskID:       "t1",
		Reference:    server.URL,
		Destination:  destination,
		ResumeOffset: offset,
	}
	err := newTestTransfer(t).Run(context.Background(), req, pause, cb)
	assert.ErrorIs(t, err, domain.ErrTransferPaused)
	assert.Equal(t, offset, ackOffset)
	assert.True(t, ackResumable)

	_, err = os.Stat(destination)
	assert.True(t, os.IsNotExist(err), "paused transfer must not promote the staging file")
}

func TestTransfer_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	req := domain.TransferRequest{
		TaskID:      "t1",
		Reference:   server.URL,
		Destination: filepath.Join(t.TempDir(), "clip.bin"),
	}
	err := newTestTransfer(t).Run(context.Background(), req, make(chan struct{}), domain.TransferCallbacks{})
	assert.ErrorIs(t, err, domain.ErrTransfer)
}

func TestTransfer_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("partial"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	req := domain.TransferRequest{
		TaskID:      "t1",
		Reference:   server.URL,
		Destination: filepath.Join(t.TempDir(), "clip.bin"),
	}
	err := newTestTransfer(t).Run(ctx, req, make(chan struct{}), domain.TransferCallbacks{})
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(req.Destination + ".part")
	assert.True(t, os.IsNotExist(statErr), "cancellation must remove the staging file")
}
