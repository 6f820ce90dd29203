package main

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/chunkupload/internal/chunkupload"
	"github.com/tonimelisma/chunkupload/internal/config"
)

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "http://host/uploads", joinURL("http://host", "/uploads"))
	assert.Equal(t, "http://host/uploads", joinURL("http://host/", "uploads"))
	assert.Equal(t, "http://host/uploads", joinURL("http://host/", "/uploads"))
}

func TestUploadID(t *testing.T) {
	assert.Equal(t, "", uploadID(nil))
	assert.Equal(t, "", uploadID(&chunkupload.FileMeta{Raw: map[string]any{}}))
	assert.Equal(t, "abc123", uploadID(&chunkupload.FileMeta{Raw: map[string]any{"uploadId": "abc123"}}))
}

func TestBuildEngineConfigURLBuilders(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	cfg := config.Default()
	cfg.Target.BaseURL = "http://upload.test"

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ec, err := buildEngineConfig(context.Background(), cfg, logger, "movie.mp4", 1024)
	require.NoError(t, err)

	assert.Equal(t, "http://upload.test/uploads", ec.GetChunkStartURL())

	meta := &chunkupload.FileMeta{Raw: map[string]any{"uploadId": "sess-1"}}
	assert.Equal(t, "http://upload.test/uploads/sess-1/chunks/2", ec.GetChunkURL(meta, 2))
	assert.Equal(t, "http://upload.test/uploads/sess-1/finish", ec.GetChunkFinishURL(meta))

	headers := ec.GetHeaders()
	assert.NotEmpty(t, headers["X-Request-Id"])
	assert.NotContains(t, headers, "Authorization")
}
