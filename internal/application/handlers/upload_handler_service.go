package handlers

import (
	"context"
	"log/slog"

	"github.com/streamvault/upload-gateway/internal/domain/model"
	"github.com/streamvault/upload-gateway/internal/domain/vobj"
	pkgErrors "github.com/streamvault/upload-gateway/pkg/errors"
)

// UploadRequest is the transport-neutral form of an upload call.
type UploadRequest struct {
	Category  vobj.MediaCategory
	ContentID string
	IsEpisode bool
	Payload   model.Payload
}

type Uploader interface {
	Upload(ctx context.Context, cmd *model.UploadCommand) (*model.UploadResult, error)
}

// UploadHandlerService turns upload requests into commands for the pipeline.
type UploadHandlerService struct {
	uploader Uploader
	logger   *slog.Logger
}

func NewUploadHandlerService(uploader Uploader, logger *slog.Logger) *UploadHandlerService {
	return &UploadHandlerService{
		uploader: uploader,
		logger:   logger,
	}
}

func (h *UploadHandlerService) HandleUpload(ctx context.Context, req UploadRequest) (*model.UploadResult, error) {
	cmd, err := model.NewUploadCommand(req.Category, req.ContentID, req.IsEpisode, req.Payload)
	if err != nil {
		h.logger.Warn("Rejected upload request",
			"category", req.Category,
			"content_id", req.ContentID,
			"error", err,
		)
		return nil, pkgErrors.WrapValidationError(err, "invalid upload request").
			WithContext("category", string(req.Category))
	}

	h.logger.Debug("Handling upload request",
		"category", cmd.Category.Label(),
		"content_id", cmd.ContentID,
		"is_episode", cmd.IsEpisode,
		"filename", cmd.Payload.Filename,
		"size", cmd.Payload.Size,
	)

	return h.uploader.Upload(ctx, cmd)
}
