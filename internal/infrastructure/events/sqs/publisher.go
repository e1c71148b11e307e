package sqs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/streamvault/upload-gateway/internal/domain/port"
)

// API is the subset of the SQS client the publisher uses.
type API interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher sends each message to the queue named <prefix><entity>. Queue
// URLs are resolved once and cached.
type Publisher struct {
	client API
	prefix string
	logger *slog.Logger

	mu        sync.Mutex
	queueURLs map[string]string
}

func NewPublisher(client API, prefix string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:    client,
		prefix:    prefix,
		logger:    logger,
		queueURLs: make(map[string]string),
	}
}

func (p *Publisher) Publish(ctx context.Context, destination string, data []byte, attributes map[string]string) error {
	queueName := p.prefix + destination
	queueURL, err := p.queueURL(ctx, queueName)
	if err != nil {
		return err
	}

	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(queueURL),
		MessageBody:       aws.String(string(data)),
		MessageAttributes: messageAttributes(attributes),
	})
	if err != nil {
		p.logger.Error("Failed to publish message", "queue", queueName, "error", err)
		return fmt.Errorf("could not send message to queue %s: %w", queueName, err)
	}

	p.logger.Debug("Message published successfully", "queue", queueName, "message_id", aws.ToString(out.MessageId))
	return nil
}

func (p *Publisher) queueURL(ctx context.Context, queueName string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if u, ok := p.queueURLs[queueName]; ok {
		return u, nil
	}
	out, err := p.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(queueName)})
	if err != nil {
		return "", fmt.Errorf("could not resolve queue %s: %w", queueName, err)
	}
	u := aws.ToString(out.QueueUrl)
	p.queueURLs[queueName] = u
	return u, nil
}

func messageAttributes(attributes map[string]string) map[string]types.MessageAttributeValue {
	if len(attributes) == 0 {
		return nil
	}
	out := make(map[string]types.MessageAttributeValue, len(attributes))
	for k, v := range attributes {
		if v == "" {
			continue
		}
		out[k] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(v),
		}
	}
	return out
}

func (p *Publisher) Close() error {
	return nil
}

var _ port.EventPublisher = (*Publisher)(nil)
