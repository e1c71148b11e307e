package storage

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/streamvault/upload-gateway/internal/domain/port"
)

type MinIOOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// NewMinIOClient builds a client without contacting the server.
func NewMinIOClient(opts MinIOOptions) (*minio.Client, error) {
	return minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
}

type MinIOStorage struct {
	*BaseStorage
	client *minio.Client
}

func NewMinIOStorage(logger *slog.Logger, client *minio.Client, bucketName string) *MinIOStorage {
	return &MinIOStorage{
		BaseStorage: NewBaseStorage(logger, bucketName),
		client:      client,
	}
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinIOStorage) EnsureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return s.storageError(err, "", "failed to check bucket")
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: region}); err != nil {
		return s.storageError(err, "", "failed to create bucket")
	}
	s.logger.Info("Created bucket", "bucket", s.bucketName)
	return nil
}

func (s *MinIOStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	started := time.Now()
	info, err := s.client.PutObject(ctx, s.bucketName, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return s.storageError(err, key, "upload object error")
	}
	s.logUploaded("minio", key, info.Size, started)
	return nil
}

func (s *MinIOStorage) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, key, ttl, url.Values{})
	if err != nil {
		return "", s.storageError(err, key, "failed to presign object")
	}
	return u.String(), nil
}

var _ port.ObjectStorage = (*MinIOStorage)(nil)
