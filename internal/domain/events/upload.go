package events

import "github.com/streamvault/upload-gateway/internal/domain/vobj"

const (
	EventTypeVideoProcessing  EventType = "VideoProcessingEvent"
	EventTypeMovieAddContent  EventType = "MovieAddContentEvent"
	EventTypeSerialAddContent EventType = "SerialAddContentEvent"
	EventTypeAnimeAddContent  EventType = "AnimeAddContentEvent"
)

// VideoProcessingEvent instructs the transcoder to produce one quality tier.
type VideoProcessingEvent struct {
	BaseEvent
	FileURL       string             `json:"fileUrl"`
	DataType      vobj.MediaCategory `json:"dataType"`
	FileName      string             `json:"fileName"`
	ContentID     string             `json:"contentId"`
	IsEpisode     bool               `json:"isEpisode"`
	Quality       vobj.Quality       `json:"quality"`
	FileExtension string             `json:"fileExtension,omitempty"`
	ContentType   string             `json:"contentType,omitempty"`
}

// Content references a stored object at a given quality.
type Content struct {
	Quality   vobj.Quality `json:"quality"`
	ObjectKey string       `json:"objectKey"`
}

type MovieAddContentEvent struct {
	BaseEvent
	MovieID string  `json:"movieId"`
	Content Content `json:"content"`
}

type SerialAddContentEvent struct {
	BaseEvent
	EpisodeID string  `json:"episodeId"`
	Content   Content `json:"content"`
}

type AnimeAddContentEvent struct {
	BaseEvent
	ContentID string  `json:"contentId"`
	IsEpisode bool    `json:"isEpisode"`
	Content   Content `json:"content"`
}

// NewCatalogContentAddedEvent builds the category's catalog registration.
func NewCatalogContentAddedEvent(category vobj.MediaCategory, contentID string, isEpisode bool, content Content) (Event, error) {
	switch category {
	case vobj.MediaCategoryMovie:
		return MovieAddContentEvent{
			BaseEvent: NewBaseEvent(EventTypeMovieAddContent),
			MovieID:   contentID,
			Content:   content,
		}, nil
	case vobj.MediaCategorySerial:
		return SerialAddContentEvent{
			BaseEvent: NewBaseEvent(EventTypeSerialAddContent),
			EpisodeID: contentID,
			Content:   content,
		}, nil
	case vobj.MediaCategoryAnime:
		return AnimeAddContentEvent{
			BaseEvent: NewBaseEvent(EventTypeAnimeAddContent),
			ContentID: contentID,
			IsEpisode: isEpisode,
			Content:   content,
		}, nil
	}
	return nil, ErrUnknownCategory{Category: category}
}

type ErrUnknownCategory struct {
	Category vobj.MediaCategory
}

func (e ErrUnknownCategory) Error() string {
	return "unknown media category: " + string(e.Category)
}
