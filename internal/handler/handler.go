package handler

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/streamvault/upload-gateway/internal/application/handlers"
	"github.com/streamvault/upload-gateway/internal/domain/model"
	"github.com/streamvault/upload-gateway/internal/domain/vobj"
	pkgErrors "github.com/streamvault/upload-gateway/pkg/errors"
)

// StatusClientClosedRequest is reported when the caller went away mid-upload.
const StatusClientClosedRequest = 499

type uploadForm struct {
	ContentID string                `form:"contentId" binding:"required"`
	IsEpisode bool                  `form:"isEpisode"`
	File      *multipart.FileHeader `form:"file" binding:"required"`
}

type UploadResponse struct {
	ObjectKey string `json:"objectKey"`
	FileURL   string `json:"fileUrl"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// HealthCheck reports the state of one dependency on /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Handler struct {
	service *handlers.UploadHandlerService
	logger  *slog.Logger
	checks  []HealthCheck
}

func NewHandler(service *handlers.UploadHandlerService, logger *slog.Logger, checks ...HealthCheck) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		checks:  checks,
	}
}

func (h *Handler) UploadMovie(c *gin.Context) {
	h.upload(c, vobj.MediaCategoryMovie)
}

func (h *Handler) UploadSerial(c *gin.Context) {
	h.upload(c, vobj.MediaCategorySerial)
}

func (h *Handler) UploadAnime(c *gin.Context) {
	h.upload(c, vobj.MediaCategoryAnime)
}

// Health answers 503 while any dependency check fails.
func (h *Handler) Health(c *gin.Context) {
	failing := make(map[string]string)
	for _, check := range h.checks {
		if err := check.Check(c.Request.Context()); err != nil {
			failing[check.Name] = err.Error()
		}
	}

	if len(failing) > 0 {
		h.logger.Warn("Health check failed", "checks", failing)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": failing})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) upload(c *gin.Context, category vobj.MediaCategory) {
	var form uploadForm
	if err := c.ShouldBind(&form); err != nil {
		if isBodyTooLarge(err) {
			writeError(c, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		writeError(c, http.StatusBadRequest, "Invalid upload form: "+err.Error())
		return
	}

	file, err := form.File.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", "filename", form.File.Filename, "error", err)
		writeError(c, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	result, err := h.service.HandleUpload(c.Request.Context(), handlers.UploadRequest{
		Category:  category,
		ContentID: form.ContentID,
		IsEpisode: form.IsEpisode,
		Payload: model.Payload{
			Reader:      file,
			Filename:    form.File.Filename,
			ContentType: form.File.Header.Get("Content-Type"),
			Size:        form.File.Size,
		},
	})
	if err != nil {
		h.writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, UploadResponse{
		ObjectKey: result.ObjectKey,
		FileURL:   result.FileURL,
	})
}

func (h *Handler) writeAppError(c *gin.Context, err error) {
	status, message := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Upload failed", "status", status, "error", err)
	}
	writeError(c, status, message)
}

// StatusFor maps a pipeline error to its HTTP status and client message.
func StatusFor(err error) (int, string) {
	switch pkgErrors.TypeOf(err) {
	case pkgErrors.ErrorTypeValidation:
		var appErr *pkgErrors.AppError
		if errors.As(err, &appErr) && appErr.Err != nil {
			return http.StatusBadRequest, appErr.Err.Error()
		}
		return http.StatusBadRequest, err.Error()
	case pkgErrors.ErrorTypeNotFound:
		return http.StatusNotFound, "Content not found"
	case pkgErrors.ErrorTypeUpstreamUnavailable, pkgErrors.ErrorTypeTimeout:
		return http.StatusServiceUnavailable, "Content catalog unavailable"
	case pkgErrors.ErrorTypeCancellation:
		return StatusClientClosedRequest, "Client closed request"
	case pkgErrors.ErrorTypeStorage:
		return http.StatusInternalServerError, "Failed to store file"
	case pkgErrors.ErrorTypePartialFanout:
		return http.StatusInternalServerError, "Failed to dispatch processing messages"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Message: message,
		Code:    strconv.Itoa(status),
	})
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}
