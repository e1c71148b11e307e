package events

import (
	"fmt"
	"sync"
)

// entityRegistry maps a message type to the exchange (topic, queue) it is sent to.
var (
	entityRegistry = make(map[EventType]string)
	registryMu     sync.RWMutex
)

func RegisterEntity(eventType EventType, entityName string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	entityRegistry[eventType] = entityName
}

// EntityName returns the destination registered for eventType.
func EntityName(eventType EventType) (string, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	name, ok := entityRegistry[eventType]
	if !ok {
		return "", fmt.Errorf("unknown event type: %s", eventType)
	}
	return name, nil
}

func init() {
	RegisterEntity(EventTypeContentExist, "movie-api-content-exist")
	RegisterEntity(EventTypeEpisodeExist, "movie-api-episode-exist")
	RegisterEntity(EventTypeVideoProcessing, "upload-api-video-processing")
	RegisterEntity(EventTypeMovieAddContent, "movie-api-movie-add-content")
	RegisterEntity(EventTypeSerialAddContent, "movie-api-serial-add-content")
	RegisterEntity(EventTypeAnimeAddContent, "movie-api-anime-add-content")
}
