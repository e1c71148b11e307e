package ledger

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/streamvault/upload-gateway/internal/domain/port"
	"github.com/streamvault/upload-gateway/internal/domain/vobj"
)

// FirestoreLedger keeps one document per upload, keyed by the upload folder.
type FirestoreLedger struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreLedger(client *firestore.Client, collection string) *FirestoreLedger {
	return &FirestoreLedger{
		client:     client,
		collection: collection,
	}
}

func (f *FirestoreLedger) Record(ctx context.Context, record port.UploadRecord) error {
	docRef := f.client.Collection(f.collection).Doc(record.Folder)
	_, err := docRef.Set(ctx, map[string]interface{}{
		"objectKey":   record.ObjectKey,
		"bucket":      record.Bucket,
		"contentId":   record.ContentID,
		"category":    string(record.Category),
		"isEpisode":   record.IsEpisode,
		"size":        record.Size,
		"contentType": record.ContentType,
		"status":      string(record.Status),
		"createdAt":   record.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (f *FirestoreLedger) UpdateStatus(
	ctx context.Context,
	record port.UploadRecord,
	status vobj.UploadStatus,
	fields map[string]interface{},
) error {
	data := map[string]interface{}{
		"status":    string(status),
		"updatedAt": time.Now().UTC(),
	}
	for k, v := range fields {
		data[k] = v
	}

	docRef := f.client.Collection(f.collection).Doc(record.Folder)
	if _, err := docRef.Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

// Get reads an upload document back; used by operators and tests.
func (f *FirestoreLedger) Get(ctx context.Context, folder string) (map[string]interface{}, error) {
	doc, err := f.client.Collection(f.collection).Doc(folder).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("document not found: %s", folder)
		}
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return doc.Data(), nil
}

// Close is a no-op; the client is owned by the container.
func (f *FirestoreLedger) Close() error {
	return nil
}

var _ port.UploadLedger = (*FirestoreLedger)(nil)
