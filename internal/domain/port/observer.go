package port

import (
	"time"

	"github.com/streamvault/upload-gateway/internal/domain/vobj"
)

// Upload outcomes reported to RecordUpload.
const (
	OutcomeCompleted = "completed"
	OutcomeRejected  = "rejected"
	OutcomeNotFound  = "not_found"
	OutcomeFailed    = "failed"
	OutcomePartial   = "partial"
	OutcomeCancelled = "cancelled"
)

// UploadObserver receives pipeline telemetry. Implementations must be safe
// for concurrent use.
type UploadObserver interface {
	RecordStage(stage string, duration time.Duration, err error)
	RecordUpload(category vobj.MediaCategory, outcome string, sizeBytes int64)
	RecordPublish(eventType string, err error)
}

// NopObserver discards telemetry.
type NopObserver struct{}

func (NopObserver) RecordStage(string, time.Duration, error)       {}
func (NopObserver) RecordUpload(vobj.MediaCategory, string, int64) {}
func (NopObserver) RecordPublish(string, error)                    {}
