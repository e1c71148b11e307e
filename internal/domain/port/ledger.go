package port

import (
	"context"
	"time"

	"github.com/streamvault/upload-gateway/internal/domain/vobj"
)

type UploadRecord struct {
	ObjectKey   string
	Folder      string
	Bucket      string
	ContentID   string
	Category    vobj.MediaCategory
	IsEpisode   bool
	Size        int64
	ContentType string
	Status      vobj.UploadStatus
	CreatedAt   time.Time
}

// UploadLedger keeps a best-effort history of persisted uploads.
type UploadLedger interface {
	Record(ctx context.Context, record UploadRecord) error
	UpdateStatus(ctx context.Context, record UploadRecord, status vobj.UploadStatus, fields map[string]interface{}) error
	Close() error
}
