package port

import (
	"context"
	"errors"
)

// ErrRequestTimeout is returned by a Requester when no reply arrived in time.
var ErrRequestTimeout = errors.New("request timed out waiting for reply")

// EventPublisher sends one message to a destination (exchange, topic or queue).
// A nil error means the transport accepted the message.
type EventPublisher interface {
	Publish(ctx context.Context, destination string, data []byte, attributes map[string]string) error
	Close() error
}

// Requester sends a message and blocks until the correlated reply arrives,
// the context ends or the requester's own timeout elapses.
type Requester interface {
	Request(ctx context.Context, destination string, correlationID string, data []byte, attributes map[string]string) ([]byte, error)
	Close() error
}
