package ledger

import (
	"context"

	"github.com/streamvault/upload-gateway/internal/domain/port"
	"github.com/streamvault/upload-gateway/internal/domain/vobj"
)

// Noop discards every record.
type Noop struct{}

func (Noop) Record(context.Context, port.UploadRecord) error { return nil }

func (Noop) UpdateStatus(context.Context, port.UploadRecord, vobj.UploadStatus, map[string]interface{}) error {
	return nil
}

func (Noop) Close() error { return nil }

var _ port.UploadLedger = Noop{}
