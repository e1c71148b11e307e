package stdout

import (
	"context"
	"log/slog"

	"github.com/streamvault/upload-gateway/internal/domain/port"
)

// Publisher writes every message to the log instead of a bus. Local use only.
type Publisher struct {
	logger *slog.Logger
}

func NewPublisher(logger *slog.Logger) *Publisher {
	return &Publisher{
		logger: logger,
	}
}

func (p *Publisher) Publish(ctx context.Context, destination string, data []byte, attributes map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "Event published to STDOUT (Local Dev)",
		slog.String("destination", destination),
		slog.String("data", string(data)),
		slog.Any("attributes", attributes),
	)

	return nil
}

func (p *Publisher) Close() error {
	return nil
}

var _ port.EventPublisher = (*Publisher)(nil)
