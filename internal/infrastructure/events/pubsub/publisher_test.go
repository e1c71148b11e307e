package pubsub

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/streamvault/upload-gateway/pkg/logger"
)

func newTestClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, srv
}

func TestPublishToPrefixedTopic(t *testing.T) {
	ctx := context.Background()
	client, srv := newTestClient(t)

	_, err := client.CreateTopic(ctx, "dev-upload-api-video-processing")
	require.NoError(t, err)

	p := NewPublisher(client, "dev-", logger.Discard())
	defer p.Close()

	err = p.Publish(ctx, "upload-api-video-processing", []byte(`{"quality":"HD"}`), map[string]string{"quality": "HD"})
	require.NoError(t, err)

	messages := srv.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, `{"quality":"HD"}`, string(messages[0].Data))
	require.Equal(t, "HD", messages[0].Attributes["quality"])
}

func TestPublishToMissingTopicFails(t *testing.T) {
	client, _ := newTestClient(t)

	p := NewPublisher(client, "", logger.Discard())
	defer p.Close()

	err := p.Publish(context.Background(), "movie-api-movie-add-content", []byte(`{}`), nil)
	require.Error(t, err)
}

func TestTopicID(t *testing.T) {
	p := NewPublisher(nil, "prod-", logger.Discard())
	require.Equal(t, "prod-movie-api-anime-add-content", p.TopicID("movie-api-anime-add-content"))
}
