package storage

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/storage"

	"github.com/streamvault/upload-gateway/internal/domain/port"
)

const gcsChunkSize = 16 * 1024 * 1024

type GCSStorage struct {
	*BaseStorage
	gcsClient *storage.Client
}

func NewGCSStorage(logger *slog.Logger, gcsClient *storage.Client, bucketName string) *GCSStorage {
	return &GCSStorage{
		BaseStorage: NewBaseStorage(logger, bucketName),
		gcsClient:   gcsClient,
	}
}

func (s *GCSStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	started := time.Now()

	// A cancelled writer context aborts the upload instead of committing it.
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	obj := s.gcsClient.Bucket(s.bucketName).Object(key)
	writer := obj.NewWriter(writeCtx)

	writer.ChunkSize = gcsChunkSize
	writer.ContentType = contentType

	written, err := copyObject(writer, r, cancel)
	if err != nil {
		return s.storageError(err, key, "failed to upload object content")
	}

	if err := writer.Close(); err != nil {
		return s.storageError(err, key, "failed to close writer")
	}

	s.logUploaded("gcs", key, written, started)
	return nil
}

// PresignedURL signs a V4 GET URL with the client's service account credentials.
func (s *GCSStorage) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.gcsClient.Bucket(s.bucketName).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", s.storageError(err, key, "failed to sign object url")
	}
	return u, nil
}

var _ port.ObjectStorage = (*GCSStorage)(nil)

// copyObject streams r into w. On a copy error it aborts the upload and
// closes w without committing.
func copyObject(w io.WriteCloser, r io.Reader, abort context.CancelFunc) (int64, error) {
	written, err := io.Copy(w, r)
	if err != nil {
		abort()
		_ = w.Close()
		return written, err
	}
	return written, nil
}
