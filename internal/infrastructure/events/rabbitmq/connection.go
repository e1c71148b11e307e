package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// ContentType marks message bodies as MassTransit JSON envelopes.
	ContentType = "application/vnd.masstransit+json"
)

// Channel is the part of *amqp.Channel the publisher and requester use.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Confirm(noWait bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
	IsClosed() bool
	Close() error
}

// ChannelSource opens channels on a live broker connection.
type ChannelSource interface {
	Channel(ctx context.Context) (Channel, error)
}

// Connection keeps one broker connection alive. A lost connection is dialed
// again in the background and on the next Channel call.
type Connection struct {
	url        string
	maxRetries int
	delay      time.Duration
	logger     *slog.Logger

	// ctx ends on Close and stops any reconnect in progress.
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	conn *amqp.Connection
}

// Connect dials the broker with the Dial retry policy and returns a
// self-healing connection.
func Connect(ctx context.Context, url string, maxRetries int, delay time.Duration, logger *slog.Logger) (*Connection, error) {
	c := &Connection{
		url:        url,
		maxRetries: maxRetries,
		delay:      delay,
		logger:     logger,
	}
	c.ctx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))

	if _, err := c.current(ctx); err != nil {
		c.cancel()
		return nil, err
	}
	return c, nil
}

// current returns the open connection, dialing a new one when the last was lost.
func (c *Connection) current(ctx context.Context) (*amqp.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx.Err() != nil {
		return nil, amqp.ErrClosed
	}
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn, nil
	}

	conn, err := Dial(ctx, c.url, c.maxRetries, c.delay, c.logger)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	go c.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))
	return conn, nil
}

func (c *Connection) watch(closed <-chan *amqp.Error) {
	reason, ok := <-closed
	if !ok || reason == nil {
		return
	}

	c.logger.Warn("RabbitMQ connection lost, reconnecting", "error", reason)
	if _, err := c.current(c.ctx); err != nil && c.ctx.Err() == nil {
		c.logger.Error("Failed to reconnect to RabbitMQ", "error", err)
	}
}

func (c *Connection) Channel(ctx context.Context) (Channel, error) {
	conn, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return ch, nil
}

// Check reports whether the broker connection is currently open.
func (c *Connection) Check(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

func (c *Connection) Close() error {
	if c.cancel != nil {
		c.cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}

// Dial connects to the broker, retrying up to maxRetries times with delay
// between attempts.
func Dial(ctx context.Context, url string, maxRetries int, delay time.Duration, logger *slog.Logger) (*amqp.Connection, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var err error
	for i := 0; i < maxRetries; i++ {
		logger.Info("Connecting to RabbitMQ", "attempt", i+1, "max_attempts", maxRetries)

		var conn *amqp.Connection
		conn, err = amqp.Dial(url)
		if err == nil {
			logger.Info("Connected to RabbitMQ")
			return conn, nil
		}

		logger.Warn("Failed to connect to RabbitMQ", "attempt", i+1, "error", err)
		if i == maxRetries-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxRetries, err)
}

// declareExchange declares the durable fanout exchange consumers bind their
// queues to, named after the message entity.
func declareExchange(ch Channel, name string) error {
	return ch.ExchangeDeclare(
		name,
		amqp.ExchangeFanout,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
}

func headersFrom(attributes map[string]string) amqp.Table {
	if len(attributes) == 0 {
		return nil
	}
	headers := make(amqp.Table, len(attributes))
	for k, v := range attributes {
		headers[k] = v
	}
	return headers
}

func publishing(data []byte, attributes map[string]string) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    attributes["event_id"],
		Type:         attributes["event_type"],
		Timestamp:    time.Now().UTC(),
		Headers:      headersFrom(attributes),
		Body:         data,
	}
}

var _ ChannelSource = (*Connection)(nil)
