package rabbitmq

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeChannel is an in-memory Channel. Consumers receive whatever the test
// pushes with reply; drop simulates the broker closing the channel.
type fakeChannel struct {
	mu         sync.Mutex
	deliveries chan amqp.Delivery
	published  []amqp.Publishing
	exchanges  []string
	queues     []string
	bindings   []string
	confirm    bool
	closed     bool

	declareErr error
	publishErr error
	onPublish  func(ch *fakeChannel, msg amqp.Publishing)
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deliveries: make(chan amqp.Delivery, 8)}
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.declareErr != nil {
		return c.declareErr
	}
	c.exchanges = append(c.exchanges, name)
	return nil
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues = append(c.queues, name)
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings = append(c.bindings, exchange+"->"+name)
	return nil
}

func (c *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return c.deliveries, nil
}

func (c *fakeChannel) Confirm(noWait bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirm = true
	return nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	if c.publishErr != nil {
		c.mu.Unlock()
		return c.publishErr
	}
	c.published = append(c.published, msg)
	hook := c.onPublish
	c.mu.Unlock()

	if hook != nil {
		hook(c, msg)
	}
	return nil
}

// PublishWithDeferredConfirmWithContext returns a nil confirmation, as a
// channel outside confirm mode does.
func (c *fakeChannel) PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error) {
	return nil, c.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}

func (c *fakeChannel) reply(d amqp.Delivery) {
	c.deliveries <- d
}

func (c *fakeChannel) drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.deliveries)
	}
}

func (c *fakeChannel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeChannel) Close() error {
	c.drop()
	return nil
}

func (c *fakeChannel) Published() []amqp.Publishing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]amqp.Publishing(nil), c.published...)
}

func (c *fakeChannel) Exchanges() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.exchanges...)
}

// fakeSource hands out a fresh fakeChannel per call, configured by setup.
type fakeSource struct {
	mu       sync.Mutex
	channels []*fakeChannel
	setup    func(n int, ch *fakeChannel)
	err      error
}

func (s *fakeSource) Channel(context.Context) (Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	ch := newFakeChannel()
	if s.setup != nil {
		s.setup(len(s.channels), ch)
	}
	s.channels = append(s.channels, ch)
	return ch, nil
}

func (s *fakeSource) opened() []*fakeChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeChannel(nil), s.channels...)
}

var _ Channel = (*fakeChannel)(nil)
