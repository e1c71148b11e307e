package storage

import (
	"log/slog"
	"time"

	"github.com/streamvault/upload-gateway/pkg/errors"
)

// BaseStorage carries what every object store backend shares.
type BaseStorage struct {
	logger     *slog.Logger
	bucketName string
}

func NewBaseStorage(logger *slog.Logger, bucketName string) *BaseStorage {
	return &BaseStorage{
		logger:     logger,
		bucketName: bucketName,
	}
}

func (bs *BaseStorage) Bucket() string {
	return bs.bucketName
}

func (bs *BaseStorage) storageError(err error, key, message string) error {
	return errors.WrapStorageError(err, message).
		WithContext("bucket", bs.bucketName).
		WithContext("key", key)
}

func (bs *BaseStorage) logUploaded(backend, key string, size int64, started time.Time) {
	bs.logger.Info("Object uploaded",
		"backend", backend,
		"bucket", bs.bucketName,
		"key", key,
		"size", size,
		"duration", time.Since(started),
	)
}
