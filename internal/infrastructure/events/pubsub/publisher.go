package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"cloud.google.com/go/pubsub"

	"github.com/streamvault/upload-gateway/internal/domain/port"
)

// Publisher maps each message entity to a Pub/Sub topic named
// <prefix><entity>. Topic handles are cached and stopped on Close.
type Publisher struct {
	client *pubsub.Client
	prefix string
	logger *slog.Logger

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

func NewPublisher(client *pubsub.Client, prefix string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		prefix: prefix,
		logger: logger,
		topics: make(map[string]*pubsub.Topic),
	}
}

func (p *Publisher) TopicID(destination string) string {
	return p.prefix + destination
}

func (p *Publisher) Publish(ctx context.Context, destination string, data []byte, attributes map[string]string) error {
	topicID := p.TopicID(destination)
	topic := p.topic(topicID)

	msg := &pubsub.Message{
		Data:       data,
		Attributes: attributes,
	}

	result := topic.Publish(ctx, msg)

	id, err := result.Get(ctx)
	if err != nil {
		p.logger.Error("Failed to publish message", "topic", topicID, "error", err)
		return fmt.Errorf("could not publish message to topic %s: %w", topicID, err)
	}

	p.logger.Debug("Message published successfully", "topic", topicID, "message_id", id)
	return nil
}

func (p *Publisher) topic(topicID string) *pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()

	topic, ok := p.topics[topicID]
	if !ok {
		topic = p.client.Topic(topicID)
		p.topics[topicID] = topic
	}
	return topic
}

// Close flushes and stops every topic handle. The client is owned by the caller.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, topic := range p.topics {
		topic.Stop()
		delete(p.topics, id)
	}
	return nil
}

var _ port.EventPublisher = (*Publisher)(nil)
