package model

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/streamvault/upload-gateway/internal/domain/vobj"
)

// Payload is the uploaded media. Reader is consumed exactly once.
type Payload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// UploadCommand is the canonical input of the upload pipeline.
type UploadCommand struct {
	ContentID string
	IsEpisode bool
	Category  vobj.MediaCategory
	Payload   Payload
}

func NewUploadCommand(category vobj.MediaCategory, contentID string, isEpisode bool, payload Payload) (*UploadCommand, error) {
	cmd := &UploadCommand{
		ContentID: strings.TrimSpace(contentID),
		IsEpisode: isEpisode,
		Category:  category,
		Payload:   payload,
	}

	switch category {
	case vobj.MediaCategoryMovie:
		cmd.IsEpisode = false
	case vobj.MediaCategorySerial:
		cmd.IsEpisode = true
	}

	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func (c *UploadCommand) Validate() error {
	if !c.Category.IsValid() {
		return fmt.Errorf("unsupported media category %q", c.Category)
	}
	if c.ContentID == "" {
		return fmt.Errorf("content id is required")
	}
	if c.Payload.Reader == nil {
		return fmt.Errorf("file is required")
	}
	if c.Payload.Size < 0 {
		return fmt.Errorf("file size must not be negative")
	}
	return nil
}

// ContentTypeOrDefault returns the declared content type or the octet-stream fallback.
func (p Payload) ContentTypeOrDefault() string {
	if ct := strings.TrimSpace(p.ContentType); ct != "" {
		return ct
	}
	return vobj.ContentTypeOctetStream
}

const maxExtensionLen = 16

// Extension returns the sanitized extension of the client filename, with the
// leading dot, or "" when the filename has none or it contains anything other
// than ASCII letters and digits.
func (p Payload) Extension() string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(p.Filename, "\\", "/")))
	if len(ext) < 2 || len(ext) > maxExtensionLen+1 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// StoredObject is the result of persisting a payload.
type StoredObject struct {
	Bucket string
	Key    string
	Folder string // the generated identifier the key is derived from
	Size   int64
}

// UploadResult is returned to the caller after a completed pipeline.
type UploadResult struct {
	ObjectKey string
	FileURL   string
	Published int
}
