package events

import (
	"context"
	"errors"
	"log/slog"

	"github.com/streamvault/upload-gateway/internal/domain/events"
	"github.com/streamvault/upload-gateway/internal/domain/port"
	"github.com/streamvault/upload-gateway/internal/domain/vobj"
	pkgErrors "github.com/streamvault/upload-gateway/pkg/errors"
)

// ExistenceService asks the catalog, over request/reply messaging, whether
// the entry an upload refers to exists.
type ExistenceService struct {
	requester  port.Requester
	serializer events.EventSerializer
	logger     *slog.Logger
}

func NewExistenceService(
	requester port.Requester,
	serializer events.EventSerializer,
	logger *slog.Logger,
) *ExistenceService {
	return &ExistenceService{
		requester:  requester,
		serializer: serializer,
		logger:     logger,
	}
}

// UsesEpisodeCheck reports which oracle answers for a category: serial ids
// are always episodes, anime ids are episodes only when flagged.
func UsesEpisodeCheck(category vobj.MediaCategory, isEpisode bool) bool {
	switch category {
	case vobj.MediaCategorySerial:
		return true
	case vobj.MediaCategoryAnime:
		return isEpisode
	default:
		return false
	}
}

func (s *ExistenceService) CheckExists(
	ctx context.Context,
	category vobj.MediaCategory,
	contentID string,
	isEpisode bool,
) (bool, error) {
	if UsesEpisodeCheck(category, isEpisode) {
		var reply events.EpisodeExistResponse
		if err := s.request(ctx, events.NewEpisodeExistEvent(contentID), &reply); err != nil {
			return false, err
		}
		return reply.IsExists, nil
	}

	var reply events.ContentExistResponse
	if err := s.request(ctx, events.NewContentExistEvent(contentID), &reply); err != nil {
		return false, err
	}
	return reply.IsExists, nil
}

func (s *ExistenceService) request(ctx context.Context, event events.Event, reply interface{}) error {
	destination, err := events.EntityName(event.GetEventType())
	if err != nil {
		return pkgErrors.WrapInternalError(err, "no destination for existence check")
	}

	data, err := s.serializer.SerializeRequest(event)
	if err != nil {
		return pkgErrors.WrapMessagingError(err, "failed to serialize existence check")
	}

	attributes := map[string]string{
		"event_type": string(event.GetEventType()),
		"event_id":   event.GetEventID(),
	}

	s.logger.Debug("Sending existence check",
		"event_type", event.GetEventType(),
		"event_id", event.GetEventID(),
		"destination", destination,
	)

	raw, err := s.requester.Request(ctx, destination, event.GetEventID(), data, attributes)
	if err != nil {
		s.logger.Error("Existence check failed",
			"event_type", event.GetEventType(),
			"event_id", event.GetEventID(),
			"error", err,
		)
		return classifyRequestError(ctx, err).
			WithContext("event_type", string(event.GetEventType())).
			WithContext("destination", destination)
	}

	if err := s.serializer.Deserialize(raw, reply); err != nil {
		return pkgErrors.WrapUpstreamUnavailableError(err, "malformed existence check reply").
			WithContext("event_type", string(event.GetEventType()))
	}
	return nil
}

func classifyRequestError(ctx context.Context, err error) *pkgErrors.AppError {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return pkgErrors.WrapCancellationError(err, "existence check cancelled")
	case errors.Is(err, port.ErrRequestTimeout), errors.Is(err, context.DeadlineExceeded):
		return pkgErrors.WrapUpstreamUnavailableError(
			pkgErrors.WrapTimeoutError(err, "no reply from catalog"),
			"existence check timed out")
	default:
		return pkgErrors.WrapUpstreamUnavailableError(err, "existence check failed")
	}
}
