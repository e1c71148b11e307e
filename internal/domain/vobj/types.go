package vobj

import "strings"

type MediaCategory string

const (
	MediaCategoryMovie  MediaCategory = "Movie"
	MediaCategorySerial MediaCategory = "Serial"
	MediaCategoryAnime  MediaCategory = "Anime"
)

func (c MediaCategory) IsValid() bool {
	switch c {
	case MediaCategoryMovie, MediaCategorySerial, MediaCategoryAnime:
		return true
	}
	return false
}

// Label is the lowercase form used in routes, log fields and metric labels.
func (c MediaCategory) Label() string {
	return strings.ToLower(string(c))
}

type Quality string

const (
	QualityFullHD Quality = "FullHD"
	QualityHD     Quality = "HD"
	QualitySD     Quality = "SD"
)

// TierKind tells which message shape a fanout tier is published as.
type TierKind string

const (
	TierKindCatalog    TierKind = "catalog"    // catalog registration carrying the object key
	TierKindProcessing TierKind = "processing" // transcoding instruction carrying the access URL
)

type UploadStatus string

const (
	UploadStatusStored     UploadStatus = "stored"     // object persisted, fanout not finished
	UploadStatusDispatched UploadStatus = "dispatched" // every fanout message published
	UploadStatusPartial    UploadStatus = "partial"    // at least one fanout message failed
	UploadStatusFailed     UploadStatus = "failed"     // object persisted, pipeline stopped before fanout
)

const (
	ContentTypeOctetStream = "application/octet-stream"
)
