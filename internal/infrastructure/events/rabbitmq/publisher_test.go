package rabbitmq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"github.com/streamvault/upload-gateway/pkg/logger"
)

const fanoutExchange = "upload-api-video-processing"

func newTestPublisher(t *testing.T, source *fakeSource) *Publisher {
	t.Helper()
	p, err := NewPublisher(context.Background(), source, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestPublisherDeclaresExchangeOnce(t *testing.T) {
	source := &fakeSource{}
	p := newTestPublisher(t, source)

	require.NoError(t, p.Publish(context.Background(), fanoutExchange, []byte(`{}`), map[string]string{"event_id": "e1"}))
	require.NoError(t, p.Publish(context.Background(), fanoutExchange, []byte(`{}`), map[string]string{"event_id": "e2"}))

	ch := source.opened()[0]
	require.True(t, ch.confirm)
	require.Equal(t, []string{fanoutExchange}, ch.Exchanges())

	published := ch.Published()
	require.Len(t, published, 2)
	require.Equal(t, "e1", published[0].MessageId)
	require.Equal(t, amqp.Persistent, published[1].DeliveryMode)
}

func TestPublisherReopensClosedChannel(t *testing.T) {
	source := &fakeSource{}
	p := newTestPublisher(t, source)

	require.NoError(t, p.Publish(context.Background(), fanoutExchange, []byte(`{}`), nil))
	source.opened()[0].drop()

	require.NoError(t, p.Publish(context.Background(), fanoutExchange, []byte(`{}`), nil))

	opened := source.opened()
	require.Len(t, opened, 2)
	require.True(t, opened[1].confirm)
	require.Equal(t, []string{fanoutExchange}, opened[1].Exchanges(), "exchange declared again on the new channel")
	require.Len(t, opened[1].Published(), 1)
}

func TestPublisherDiscardsChannelAfterDeclareFailure(t *testing.T) {
	source := &fakeSource{setup: func(n int, ch *fakeChannel) {
		if n == 0 {
			ch.declareErr = &amqp.Error{Code: amqp.PreconditionFailed, Reason: "inequivalent arg 'type'"}
		}
	}}
	p := newTestPublisher(t, source)

	err := p.Publish(context.Background(), fanoutExchange, []byte(`{}`), nil)
	require.Error(t, err)
	require.True(t, source.opened()[0].IsClosed())

	require.NoError(t, p.Publish(context.Background(), fanoutExchange, []byte(`{}`), nil))
	require.Len(t, source.opened(), 2)
}

func TestPublisherSurfacesSourceErrors(t *testing.T) {
	source := &fakeSource{}
	p := newTestPublisher(t, source)

	source.opened()[0].drop()
	source.err = errors.New("connection refused")
	require.Error(t, p.Publish(context.Background(), fanoutExchange, []byte(`{}`), nil))

	source.err = nil
	require.NoError(t, p.Publish(context.Background(), fanoutExchange, []byte(`{}`), nil))
}

func TestPublisherAfterCloseFails(t *testing.T) {
	p := newTestPublisher(t, &fakeSource{})
	require.NoError(t, p.Close())
	require.ErrorIs(t, p.Publish(context.Background(), fanoutExchange, []byte(`{}`), nil), amqp.ErrClosed)
}

func TestConnectionCheckWithoutBroker(t *testing.T) {
	c := &Connection{}
	require.Error(t, c.Check(context.Background()))
	require.NoError(t, c.Close())
}
