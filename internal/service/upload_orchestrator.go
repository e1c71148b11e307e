package service

import (
	"context"
	"log/slog"
	"time"

	appEvents "github.com/streamvault/upload-gateway/internal/application/events"
	"github.com/streamvault/upload-gateway/internal/domain/model"
	"github.com/streamvault/upload-gateway/internal/domain/port"
	"github.com/streamvault/upload-gateway/internal/domain/vobj"
	"github.com/streamvault/upload-gateway/pkg/errors"
)

const (
	StageExistence = "existence"
	StagePersist   = "persist"
	StagePresign   = "presign"
	StageFanout    = "fanout"
)

type ExistenceChecker interface {
	CheckExists(ctx context.Context, category vobj.MediaCategory, contentID string, isEpisode bool) (bool, error)
}

type FanoutPublisher interface {
	PublishFanout(ctx context.Context, req appEvents.FanoutRequest) (appEvents.FanoutReport, error)
}

type ObjectPersister interface {
	Persist(ctx context.Context, payload model.Payload) (model.StoredObject, error)
	AccessURL(ctx context.Context, key string) (string, error)
}

// UploadOrchestrator runs one upload through existence check, persist,
// presign and fanout. Each stage runs once; a failed stage ends the pipeline.
type UploadOrchestrator struct {
	logger         *slog.Logger
	existence      ExistenceChecker
	storage        ObjectPersister
	fanout         FanoutPublisher
	ledger         port.UploadLedger
	observer       port.UploadObserver
	publishTimeout time.Duration
}

func NewUploadOrchestrator(
	logger *slog.Logger,
	existence ExistenceChecker,
	storage ObjectPersister,
	fanout FanoutPublisher,
	ledger port.UploadLedger,
	observer port.UploadObserver,
	publishTimeout time.Duration,
) *UploadOrchestrator {
	if observer == nil {
		observer = port.NopObserver{}
	}
	return &UploadOrchestrator{
		logger:         logger,
		existence:      existence,
		storage:        storage,
		fanout:         fanout,
		ledger:         ledger,
		observer:       observer,
		publishTimeout: publishTimeout,
	}
}

func (o *UploadOrchestrator) Upload(ctx context.Context, cmd *model.UploadCommand) (result *model.UploadResult, err error) {
	defer func() {
		o.observer.RecordUpload(cmd.Category, outcomeOf(err), cmd.Payload.Size)
	}()

	if err := cmd.Validate(); err != nil {
		return nil, errors.WrapValidationError(err, "invalid upload request")
	}

	log := o.logger.With(
		"category", cmd.Category.Label(),
		"content_id", cmd.ContentID,
		"is_episode", cmd.IsEpisode,
	)
	log.Info("Starting upload")

	if err := o.checkExistence(ctx, cmd); err != nil {
		log.Warn("Upload rejected", "stage", StageExistence, "error", err)
		return nil, err
	}

	var object model.StoredObject
	err = o.stage(StagePersist, func() (stageErr error) {
		object, stageErr = o.storage.Persist(ctx, cmd.Payload)
		return stageErr
	})
	if err != nil {
		log.Error("Failed to persist upload", "error", err)
		return nil, err
	}
	log = log.With("object_key", object.Key)

	record := port.UploadRecord{
		ObjectKey:   object.Key,
		Folder:      object.Folder,
		Bucket:      object.Bucket,
		ContentID:   cmd.ContentID,
		Category:    cmd.Category,
		IsEpisode:   cmd.IsEpisode,
		Size:        object.Size,
		ContentType: cmd.Payload.ContentTypeOrDefault(),
		Status:      vobj.UploadStatusStored,
		CreatedAt:   time.Now().UTC(),
	}
	o.recordLedger(ctx, log, record)

	var fileURL string
	err = o.stage(StagePresign, func() (stageErr error) {
		fileURL, stageErr = o.storage.AccessURL(ctx, object.Key)
		return stageErr
	})
	if err != nil {
		log.Error("Failed to presign upload", "error", err)
		o.markFailed(ctx, log, record, StagePresign, err)
		return nil, err
	}

	// Fanout is detached from the caller: a disconnect after this point does
	// not stop it.
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = errors.WrapCancellationError(ctxErr, "upload cancelled before fanout").
			WithContext("object_key", object.Key)
		o.markFailed(ctx, log, record, StageFanout, err)
		return nil, err
	}
	fanoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.publishTimeout)
	defer cancel()

	var report appEvents.FanoutReport
	err = o.stage(StageFanout, func() (stageErr error) {
		report, stageErr = o.fanout.PublishFanout(fanoutCtx, appEvents.FanoutRequest{
			Command: cmd,
			Object:  object,
			FileURL: fileURL,
		})
		return stageErr
	})

	status := vobj.UploadStatusDispatched
	fields := map[string]interface{}{"published": qualityLabels(report.Published)}
	if err != nil {
		status = vobj.UploadStatusPartial
		fields["failed"] = qualityLabels(report.Failed)
	}
	o.updateLedger(fanoutCtx, log, record, status, fields)

	if err != nil {
		log.Error("Fanout incomplete", "published", len(report.Published), "failed", len(report.Failed), "error", err)
		return nil, err
	}

	log.Info("Upload completed", "published", len(report.Published))
	return &model.UploadResult{
		ObjectKey: object.Key,
		FileURL:   fileURL,
		Published: len(report.Published),
	}, nil
}

func (o *UploadOrchestrator) checkExistence(ctx context.Context, cmd *model.UploadCommand) error {
	var exists bool
	err := o.stage(StageExistence, func() (stageErr error) {
		exists, stageErr = o.existence.CheckExists(ctx, cmd.Category, cmd.ContentID, cmd.IsEpisode)
		return stageErr
	})
	if err != nil {
		return err
	}
	if !exists {
		return errors.NewNotFoundError("content").
			WithContext("content_id", cmd.ContentID).
			WithContext("category", cmd.Category.Label())
	}
	return nil
}

func (o *UploadOrchestrator) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	o.observer.RecordStage(name, time.Since(start), err)
	return err
}

func (o *UploadOrchestrator) recordLedger(ctx context.Context, log *slog.Logger, record port.UploadRecord) {
	if o.ledger == nil {
		return
	}
	if err := o.ledger.Record(ctx, record); err != nil {
		log.Warn("Failed to record upload in ledger", "error", err)
	}
}

// markFailed flags a persisted object whose pipeline stopped before fanout.
// The caller's context may already be done, so the write is detached.
func (o *UploadOrchestrator) markFailed(ctx context.Context, log *slog.Logger, record port.UploadRecord, stage string, cause error) {
	ledgerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.publishTimeout)
	defer cancel()
	o.updateLedger(ledgerCtx, log, record, vobj.UploadStatusFailed, map[string]interface{}{
		"stage": stage,
		"error": cause.Error(),
	})
}

func (o *UploadOrchestrator) updateLedger(
	ctx context.Context,
	log *slog.Logger,
	record port.UploadRecord,
	status vobj.UploadStatus,
	fields map[string]interface{},
) {
	if o.ledger == nil {
		return
	}
	if err := o.ledger.UpdateStatus(ctx, record, status, fields); err != nil {
		log.Warn("Failed to update upload status in ledger", "status", status, "error", err)
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return port.OutcomeCompleted
	}
	switch errors.TypeOf(err) {
	case errors.ErrorTypeValidation:
		return port.OutcomeRejected
	case errors.ErrorTypeNotFound:
		return port.OutcomeNotFound
	case errors.ErrorTypePartialFanout:
		return port.OutcomePartial
	case errors.ErrorTypeCancellation:
		return port.OutcomeCancelled
	default:
		return port.OutcomeFailed
	}
}

func qualityLabels(qualities []vobj.Quality) []string {
	labels := make([]string, 0, len(qualities))
	for _, q := range qualities {
		labels = append(labels, string(q))
	}
	return labels
}
