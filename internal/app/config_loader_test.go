package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 3, config.Scheduler.ConcurrentLimit)
	assert.Equal(t, 5*time.Second, config.Scheduler.CancelGracePeriod)
	assert.Equal(t, "ffmpeg", config.Transcode.FFmpegBinary)
	assert.NotContains(t, config.Storage.BaseDir, "$HOME", "paths must be expanded")
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	content := `
server:
  port: 9090
scheduler:
  concurrent_limit: 5
transfer:
  chunk_size: 1024
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, 5, config.Scheduler.ConcurrentLimit)
	assert.Equal(t, 1024, config.Transfer.ChunkSize)
	// untouched values keep their defaults
	assert.Equal(t, "localhost", config.Server.Host)
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad port", "server:\n  port: 70000\n"},
		{"zero concurrency", "scheduler:\n  concurrent_limit: 0\n"},
		{"zero chunk size", "transfer:\n  chunk_size: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "music"), expandPath("~/music"))
	assert.True(t, strings.HasPrefix(expandPath("$HOME/music"), home))
	assert.Equal(t, "/srv/media", expandPath("/srv/media"))
}
