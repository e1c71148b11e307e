package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/streamvault/upload-gateway/internal/domain/port"
)

// Publisher publishes to fanout exchanges on a confirm-mode channel. Each
// Publish waits for the broker's ack. A closed or failed channel is replaced
// on the next Publish.
type Publisher struct {
	source ChannelSource
	logger *slog.Logger

	mu       sync.Mutex
	channel  Channel
	declared map[string]bool
	closed   bool
}

func NewPublisher(ctx context.Context, source ChannelSource, logger *slog.Logger) (*Publisher, error) {
	p := &Publisher{
		source: source,
		logger: logger,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.ensureChannel(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) Publish(ctx context.Context, exchange string, data []byte, attributes map[string]string) error {
	confirm, err := p.publish(ctx, exchange, data, attributes)
	if err != nil {
		p.logger.Error("Failed to publish message", "exchange", exchange, "error", err)
		return fmt.Errorf("could not publish message to exchange %s: %w", exchange, err)
	}

	// nil when the channel is not in confirm mode
	if confirm != nil {
		acked, err := confirm.WaitContext(ctx)
		if err != nil {
			return fmt.Errorf("no confirm for message to exchange %s: %w", exchange, err)
		}
		if !acked {
			return fmt.Errorf("broker rejected message to exchange %s", exchange)
		}
	}

	p.logger.Debug("Message published successfully", "exchange", exchange)
	return nil
}

func (p *Publisher) publish(ctx context.Context, exchange string, data []byte, attributes map[string]string) (*amqp.DeferredConfirmation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.ensureChannel(ctx)
	if err != nil {
		return nil, err
	}

	if !p.declared[exchange] {
		if err := declareExchange(ch, exchange); err != nil {
			p.discard()
			return nil, fmt.Errorf("failed to declare exchange: %w", err)
		}
		p.declared[exchange] = true
	}

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx,
		exchange,
		"",    // routing key, ignored by fanout exchanges
		false, // mandatory
		false, // immediate
		publishing(data, attributes),
	)
	if err != nil {
		p.discard()
		return nil, err
	}
	return confirm, nil
}

// ensureChannel returns the open channel, replacing a closed one. Callers
// hold p.mu.
func (p *Publisher) ensureChannel(ctx context.Context) (Channel, error) {
	if p.closed {
		return nil, amqp.ErrClosed
	}
	if p.channel != nil && !p.channel.IsClosed() {
		return p.channel, nil
	}
	if p.channel != nil {
		p.logger.Warn("Publisher channel closed, reopening")
	}

	ch, err := p.source.Channel(ctx)
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	p.channel = ch
	p.declared = make(map[string]bool)
	return ch, nil
}

// discard drops the current channel. Callers hold p.mu.
func (p *Publisher) discard() {
	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.channel == nil {
		return nil
	}
	err := p.channel.Close()
	p.channel = nil
	return err
}

var _ port.EventPublisher = (*Publisher)(nil)
