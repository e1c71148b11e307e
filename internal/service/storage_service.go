package service

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamvault/upload-gateway/internal/domain/model"
	"github.com/streamvault/upload-gateway/internal/domain/port"
	"github.com/streamvault/upload-gateway/internal/domain/vobj"
	"github.com/streamvault/upload-gateway/pkg/errors"
)

// objectBaseName is the file name every upload is stored under inside its
// generated folder.
const objectBaseName = "temp"

type StorageService struct {
	logger  *slog.Logger
	storage port.ObjectStorage
	urlTTL  time.Duration
}

func NewStorageService(logger *slog.Logger, storage port.ObjectStorage, urlTTL time.Duration) *StorageService {
	return &StorageService{
		logger:  logger,
		storage: storage,
		urlTTL:  urlTTL,
	}
}

// ObjectKey derives the storage key for a generated folder id.
func ObjectKey(folder, ext string) string {
	return path.Join(folder, objectBaseName+ext)
}

// Persist streams the payload to the object store under a fresh key. The
// payload reader is consumed once and never buffered here.
func (s *StorageService) Persist(ctx context.Context, payload model.Payload) (model.StoredObject, error) {
	folder := uuid.NewString()
	key := ObjectKey(folder, payload.Extension())
	contentType := s.detectContentType(payload)

	s.logger.Info("Uploading object",
		"bucket", s.storage.Bucket(),
		"key", key,
		"size", payload.Size,
		"content_type", contentType,
	)

	if err := s.storage.Put(ctx, key, payload.Reader, payload.Size, contentType); err != nil {
		if ctx.Err() != nil {
			return model.StoredObject{}, errors.WrapCancellationError(err, "upload cancelled").
				WithContext("key", key)
		}
		return model.StoredObject{}, errors.WrapStorageError(err, "failed to upload object").
			WithContext("bucket", s.storage.Bucket()).
			WithContext("key", key)
	}

	return model.StoredObject{
		Bucket: s.storage.Bucket(),
		Key:    key,
		Folder: folder,
		Size:   payload.Size,
	}, nil
}

// AccessURL returns a time-bounded GET URL for a stored object.
func (s *StorageService) AccessURL(ctx context.Context, key string) (string, error) {
	url, err := s.storage.PresignedURL(ctx, key, s.urlTTL)
	if err != nil {
		return "", errors.WrapStorageError(err, "failed to presign object url").
			WithContext("key", key).
			WithContext("ttl", s.urlTTL.String())
	}
	return url, nil
}

func (s *StorageService) Bucket() string {
	return s.storage.Bucket()
}

// detectContentType keeps the declared type and falls back to the extension.
func (s *StorageService) detectContentType(payload model.Payload) string {
	if ct := strings.TrimSpace(payload.ContentType); ct != "" && ct != vobj.ContentTypeOctetStream {
		return ct
	}
	contentTypes := map[string]string{
		".mp4":  "video/mp4",
		".m4v":  "video/x-m4v",
		".mkv":  "video/x-matroska",
		".webm": "video/webm",
		".mov":  "video/quicktime",
		".avi":  "video/x-msvideo",
		".ts":   "video/mp2t",
		".m3u8": "application/vnd.apple.mpegurl",
	}
	if contentType, ok := contentTypes[payload.Extension()]; ok {
		return contentType
	}
	return vobj.ContentTypeOctetStream
}
