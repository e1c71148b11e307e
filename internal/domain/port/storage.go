package port

import (
	"context"
	"io"
	"time"
)

// ObjectStorage persists upload payloads and hands out time-bounded read URLs.
type ObjectStorage interface {
	// Put streams size bytes from r under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// PresignedURL returns a GET URL for key valid for ttl.
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Bucket() string
}
