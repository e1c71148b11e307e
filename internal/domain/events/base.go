package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the message name; it doubles as the URN suffix on the wire.
type EventType string

type BaseEvent struct {
	EventID   string    `json:"-"`
	EventType EventType `json:"-"`
	Timestamp time.Time `json:"-"`
}

func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

type Event interface {
	GetEventID() string
	GetEventType() EventType
	GetTimestamp() time.Time
}

func (e BaseEvent) GetEventID() string {
	return e.EventID
}

func (e BaseEvent) GetEventType() EventType {
	return e.EventType
}

func (e BaseEvent) GetTimestamp() time.Time {
	return e.Timestamp
}

// MessageURN returns the message type urn consumers bind on.
func (t EventType) MessageURN() string {
	return "urn:message:" + string(t)
}
