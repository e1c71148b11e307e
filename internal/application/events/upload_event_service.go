package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streamvault/upload-gateway/internal/domain/events"
	"github.com/streamvault/upload-gateway/internal/domain/model"
	"github.com/streamvault/upload-gateway/internal/domain/port"
	"github.com/streamvault/upload-gateway/internal/domain/vobj"
	pkgErrors "github.com/streamvault/upload-gateway/pkg/errors"
)

// FanoutRequest describes a stored upload whose downstream messages are due.
type FanoutRequest struct {
	Command *model.UploadCommand
	Object  model.StoredObject
	FileURL string
}

// FanoutReport lists the tiers that did and did not reach the bus, in publish order.
type FanoutReport struct {
	Published []vobj.Quality
	Failed    []vobj.Quality
}

type UploadEventService struct {
	publisher  port.EventPublisher
	serializer events.EventSerializer
	observer   port.UploadObserver
	logger     *slog.Logger
}

func NewUploadEventService(
	publisher port.EventPublisher,
	serializer events.EventSerializer,
	observer port.UploadObserver,
	logger *slog.Logger,
) *UploadEventService {
	if observer == nil {
		observer = port.NopObserver{}
	}
	return &UploadEventService{
		publisher:  publisher,
		serializer: serializer,
		observer:   observer,
		logger:     logger,
	}
}

// PublishFanout publishes one message per tier of the category's fanout plan,
// sequentially and in plan order. A failed tier does not stop the following
// ones; any failure is reported as a partial fanout error.
func (s *UploadEventService) PublishFanout(ctx context.Context, req FanoutRequest) (FanoutReport, error) {
	var report FanoutReport

	for _, tier := range model.FanoutPlan(req.Command.Category) {
		event, err := BuildFanoutEvent(req, tier)
		if err == nil {
			err = s.publishEvent(ctx, event, req.Command, tier.Quality)
		}
		if err != nil {
			s.logger.Error("Failed to publish fanout message",
				"content_id", req.Command.ContentID,
				"object_key", req.Object.Key,
				"quality", tier.Quality,
				"error", err,
			)
			report.Failed = append(report.Failed, tier.Quality)
			continue
		}
		report.Published = append(report.Published, tier.Quality)
	}

	if len(report.Failed) > 0 {
		return report, pkgErrors.NewPartialFanoutError(
			fmt.Sprintf("%d of %d fanout messages failed", len(report.Failed), len(report.Failed)+len(report.Published))).
			WithContext("object_key", req.Object.Key).
			WithContext("failed_qualities", report.Failed).
			WithContext("published_qualities", report.Published)
	}

	s.logger.Info("Fanout published",
		"content_id", req.Command.ContentID,
		"object_key", req.Object.Key,
		"published", len(report.Published),
	)
	return report, nil
}

// BuildFanoutEvent creates a new, unshared event value for one tier.
func BuildFanoutEvent(req FanoutRequest, tier model.FanoutTier) (events.Event, error) {
	cmd := req.Command

	switch tier.Kind {
	case vobj.TierKindCatalog:
		return events.NewCatalogContentAddedEvent(cmd.Category, cmd.ContentID, cmd.IsEpisode, events.Content{
			Quality:   tier.Quality,
			ObjectKey: req.Object.Key,
		})
	case vobj.TierKindProcessing:
		return events.VideoProcessingEvent{
			BaseEvent:     events.NewBaseEvent(events.EventTypeVideoProcessing),
			FileURL:       req.FileURL,
			DataType:      cmd.Category,
			FileName:      req.Object.Folder,
			ContentID:     cmd.ContentID,
			IsEpisode:     cmd.IsEpisode,
			Quality:       tier.Quality,
			FileExtension: cmd.Payload.Extension(),
			ContentType:   cmd.Payload.ContentTypeOrDefault(),
		}, nil
	}
	return nil, fmt.Errorf("unknown fanout tier kind %q", tier.Kind)
}

func (s *UploadEventService) publishEvent(
	ctx context.Context,
	event events.Event,
	cmd *model.UploadCommand,
	quality vobj.Quality,
) (err error) {
	eventType := string(event.GetEventType())
	defer func() { s.observer.RecordPublish(eventType, err) }()

	destination, err := events.EntityName(event.GetEventType())
	if err != nil {
		return pkgErrors.WrapInternalError(err, "no destination for event")
	}

	data, err := s.serializer.Serialize(event)
	if err != nil {
		return pkgErrors.WrapMessagingError(err, "failed to serialize event")
	}

	attributes := map[string]string{
		"event_type": eventType,
		"event_id":   event.GetEventID(),
		"content_id": cmd.ContentID,
		"category":   cmd.Category.Label(),
		"quality":    string(quality),
	}

	if err := s.publisher.Publish(ctx, destination, data, attributes); err != nil {
		return pkgErrors.WrapMessagingError(err, "failed to publish event").
			WithContext("destination", destination)
	}

	s.logger.Debug("Published fanout message",
		"event_type", eventType,
		"event_id", event.GetEventID(),
		"destination", destination,
		"quality", quality,
	)
	return nil
}
