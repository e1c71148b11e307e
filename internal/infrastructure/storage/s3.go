package storage

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/streamvault/upload-gateway/internal/domain/port"
)

type S3Options struct {
	Region    string
	Endpoint  string // optional, for S3-compatible stores
	AccessKey string // optional, falls back to the default credential chain
	SecretKey string
}

// LoadAWSConfig loads the SDK config from the environment, overriding
// credentials when static keys are given.
func LoadAWSConfig(ctx context.Context, region, accessKey, secretKey string) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	if accessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	return config.LoadDefaultConfig(ctx, opts...)
}

// NewS3Client builds an S3 client; a custom endpoint switches to path-style addressing.
func NewS3Client(cfg aws.Config, endpoint string) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
}

type S3Storage struct {
	*BaseStorage
	client  *s3.Client
	presign *s3.PresignClient
}

func NewS3Storage(logger *slog.Logger, client *s3.Client, bucketName string) *S3Storage {
	return &S3Storage{
		BaseStorage: NewBaseStorage(logger, bucketName),
		client:      client,
		presign:     s3.NewPresignClient(client),
	}
}

func (s *S3Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	started := time.Now()

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return s.storageError(err, key, "failed to upload to S3")
	}

	s.logUploaded("s3", key, size, started)
	return nil
}

func (s *S3Storage) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", s.storageError(err, key, "failed to presign S3 object")
	}
	return req.URL, nil
}

var _ port.ObjectStorage = (*S3Storage)(nil)
