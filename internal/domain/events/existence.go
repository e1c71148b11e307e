package events

const (
	EventTypeContentExist     EventType = "ContentExistEvent"
	EventTypeEpisodeExist     EventType = "EpisodeExistEvent"
	EventTypeContentExistResp EventType = "ContentExistResponse"
	EventTypeEpisodeExistResp EventType = "EpisodeExistResponse"
)

// ContentExistEvent asks the catalog whether a movie or anime entry exists.
type ContentExistEvent struct {
	BaseEvent
	ContentID string `json:"contentId"`
}

func NewContentExistEvent(contentID string) ContentExistEvent {
	return ContentExistEvent{
		BaseEvent: NewBaseEvent(EventTypeContentExist),
		ContentID: contentID,
	}
}

// EpisodeExistEvent asks the catalog whether an episode exists.
type EpisodeExistEvent struct {
	BaseEvent
	EpisodeID string `json:"episodeId"`
}

func NewEpisodeExistEvent(episodeID string) EpisodeExistEvent {
	return EpisodeExistEvent{
		BaseEvent: NewBaseEvent(EventTypeEpisodeExist),
		EpisodeID: episodeID,
	}
}

type ContentExistResponse struct {
	ContentID string `json:"contentId"`
	IsExists  bool   `json:"isExists"`
}

type EpisodeExistResponse struct {
	EpisodeID string `json:"episodeId"`
	IsExists  bool   `json:"isExists"`
}
