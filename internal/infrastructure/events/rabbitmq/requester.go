package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/streamvault/upload-gateway/internal/domain/events"
	"github.com/streamvault/upload-gateway/internal/domain/port"
)

var errConsumerStopped = errors.New("reply consumer stopped")

// replyRegistry routes replies to the request waiting on their correlation id.
type replyRegistry struct {
	mu      sync.Mutex
	pending map[string]chan []byte
}

func newReplyRegistry() *replyRegistry {
	return &replyRegistry{pending: make(map[string]chan []byte)}
}

func (r *replyRegistry) register(correlationID string) (<-chan []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[correlationID]; ok {
		return nil, fmt.Errorf("request %s already pending", correlationID)
	}
	ch := make(chan []byte, 1)
	r.pending[correlationID] = ch
	return ch, nil
}

func (r *replyRegistry) unregister(correlationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, correlationID)
}

// deliver hands body to the waiting request and reports whether one was found.
// Late or duplicate replies are dropped.
func (r *replyRegistry) deliver(correlationID string, body []byte) bool {
	if correlationID == "" {
		return false
	}
	r.mu.Lock()
	ch, ok := r.pending[correlationID]
	if ok {
		delete(r.pending, correlationID)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	ch <- body
	return true
}

func (r *replyRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

type RequesterOptions struct {
	// URL is the broker URL; its host and vhost form the reply address.
	URL string
	// QueueName names the reply queue. Empty generates one per instance.
	QueueName string
	Timeout   time.Duration
}

// Requester implements request/reply over RabbitMQ. Requests go to fanout
// exchanges with the address of the requester's reply queue in the envelope
// (responseAddress) and in the AMQP ReplyTo property. Replies are matched on
// the envelope requestId, falling back to the AMQP correlation id.
type Requester struct {
	source   ChannelSource
	logger   *slog.Logger
	timeout  time.Duration
	queue    string
	address  string
	registry *replyRegistry

	mu       sync.Mutex
	channel  Channel
	done     chan struct{}
	declared map[string]bool
	closed   bool
}

func NewRequester(ctx context.Context, source ChannelSource, opts RequesterOptions, logger *slog.Logger) (*Requester, error) {
	queue := opts.QueueName
	if queue == "" {
		queue = "upload-gateway-reply-" + uuid.NewString()
	}
	address, err := replyAddress(opts.URL, queue)
	if err != nil {
		return nil, fmt.Errorf("invalid broker url: %w", err)
	}

	r := &Requester{
		source:   source,
		logger:   logger.With("reply_queue", queue),
		timeout:  opts.Timeout,
		queue:    queue,
		address:  address,
		registry: newReplyRegistry(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, _, err := r.ensureChannel(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Address is the MassTransit endpoint address responders reply to.
func (r *Requester) Address() string {
	return r.address
}

func (r *Requester) Request(
	ctx context.Context,
	exchange string,
	correlationID string,
	data []byte,
	attributes map[string]string,
) ([]byte, error) {
	body, err := r.stampEnvelope(data, correlationID)
	if err != nil {
		return nil, fmt.Errorf("invalid request envelope: %w", err)
	}

	replies, err := r.registry.register(correlationID)
	if err != nil {
		return nil, err
	}
	defer r.registry.unregister(correlationID)

	msg := publishing(body, attributes)
	msg.CorrelationId = correlationID
	msg.ReplyTo = r.queue
	msg.DeliveryMode = amqp.Transient
	msg.Expiration = strconv.FormatInt(r.timeout.Milliseconds(), 10)

	done, err := r.send(ctx, exchange, msg)
	if err != nil {
		return nil, fmt.Errorf("could not send request to exchange %s: %w", exchange, err)
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case body := <-replies:
		return body, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, port.ErrRequestTimeout
	case <-done:
		return nil, errConsumerStopped
	}
}

// stampEnvelope points the envelope's response and source addresses at the
// reply queue and makes sure it carries the request id.
func (r *Requester) stampEnvelope(data []byte, correlationID string) ([]byte, error) {
	var envelope events.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	if envelope.RequestID == "" {
		envelope.RequestID = correlationID
	}
	envelope.ResponseAddress = r.address
	envelope.SourceAddress = r.address
	return json.Marshal(envelope)
}

// send publishes msg and returns the done channel of the consumer that will
// see the reply.
func (r *Requester) send(ctx context.Context, exchange string, msg amqp.Publishing) (<-chan struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, done, err := r.ensureChannel(ctx)
	if err != nil {
		return nil, err
	}

	if !r.declared[exchange] {
		if err := declareExchange(ch, exchange); err != nil {
			r.discard()
			return nil, fmt.Errorf("failed to declare exchange: %w", err)
		}
		r.declared[exchange] = true
	}

	if err := ch.PublishWithContext(ctx, exchange, "", false, false, msg); err != nil {
		r.discard()
		return nil, err
	}
	return done, nil
}

// ensureChannel returns the open channel and its consumer's done channel,
// declaring the reply endpoint again on a fresh channel. Callers hold r.mu.
func (r *Requester) ensureChannel(ctx context.Context) (Channel, chan struct{}, error) {
	if r.closed {
		return nil, nil, amqp.ErrClosed
	}
	if r.channel != nil && !r.channel.IsClosed() {
		return r.channel, r.done, nil
	}
	if r.channel != nil {
		r.logger.Warn("Requester channel closed, reopening")
		r.discard()
	}

	ch, err := r.source.Channel(ctx)
	if err != nil {
		return nil, nil, err
	}
	deliveries, err := r.declareReplyEndpoint(ch)
	if err != nil {
		ch.Close()
		return nil, nil, err
	}

	done := make(chan struct{})
	go r.dispatch(deliveries, done)

	r.channel = ch
	r.done = done
	r.declared = make(map[string]bool)
	return ch, done, nil
}

// declareReplyEndpoint sets up the reply queue the way MassTransit expects
// a temporary endpoint: a non-durable auto-delete queue bound to an exchange
// of the same name.
func (r *Requester) declareReplyEndpoint(ch Channel) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(r.queue, false, true, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare reply queue: %w", err)
	}
	if err := ch.ExchangeDeclare(r.queue, amqp.ExchangeFanout, false, true, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare reply exchange: %w", err)
	}
	if err := ch.QueueBind(r.queue, "", r.queue, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind reply queue: %w", err)
	}

	deliveries, err := ch.Consume(
		r.queue,
		"",    // consumer
		true,  // auto-ack
		true,  // exclusive consumer
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume replies: %w", err)
	}
	return deliveries, nil
}

// discard drops the current channel; its consumer stops and closes done.
// Callers hold r.mu.
func (r *Requester) discard() {
	if r.channel != nil {
		_ = r.channel.Close()
		r.channel = nil
	}
}

func (r *Requester) dispatch(deliveries <-chan amqp.Delivery, done chan struct{}) {
	defer close(done)
	for d := range deliveries {
		if !r.route(d) {
			r.logger.Warn("Dropping reply without pending request", "correlation_id", d.CorrelationId)
		}
	}
}

func (r *Requester) route(d amqp.Delivery) bool {
	var envelope struct {
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(d.Body, &envelope); err == nil && r.registry.deliver(envelope.RequestID, d.Body) {
		return true
	}
	return r.registry.deliver(d.CorrelationId, d.Body)
}

func (r *Requester) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if r.channel == nil {
		return nil
	}
	err := r.channel.Close()
	r.channel = nil
	return err
}

// replyAddress formats the MassTransit address of a temporary queue on the
// broker behind rawURL.
func replyAddress(rawURL, queue string) (string, error) {
	uri, err := amqp.ParseURI(rawURL)
	if err != nil {
		return "", err
	}

	scheme, defaultPort := "rabbitmq", 5672
	if uri.Scheme == "amqps" {
		scheme, defaultPort = "rabbitmqs", 5671
	}
	host := uri.Host
	if uri.Port != 0 && uri.Port != defaultPort {
		host = net.JoinHostPort(uri.Host, strconv.Itoa(uri.Port))
	}

	path := "/"
	if uri.Vhost != "" && uri.Vhost != "/" {
		path += url.PathEscape(uri.Vhost) + "/"
	}
	return fmt.Sprintf("%s://%s%s%s?durable=false&autodelete=true", scheme, host, path, queue), nil
}

var _ port.Requester = (*Requester)(nil)
