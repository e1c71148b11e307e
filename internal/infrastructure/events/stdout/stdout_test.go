package stdout

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamvault/upload-gateway/pkg/logger"
)

func TestPublishLogsMessage(t *testing.T) {
	var buf bytes.Buffer
	p := NewPublisher(logger.New(logger.Config{Level: "info", Format: "json", Output: &buf}))

	err := p.Publish(context.Background(), "upload-api-video-processing", []byte(`{"quality":"HD"}`), map[string]string{"quality": "HD"})
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "upload-api-video-processing", entry["destination"])
	require.Equal(t, `{"quality":"HD"}`, entry["data"])
	require.Equal(t, map[string]any{"quality": "HD"}, entry["attributes"])
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	var buf bytes.Buffer
	p := NewPublisher(logger.New(logger.Config{Level: "info", Format: "json", Output: &buf}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, p.Publish(ctx, "x", nil, nil), context.Canceled)
	require.Zero(t, buf.Len())
	require.NoError(t, p.Close())
}
