package events

import (
	"encoding/json"
	"time"

	"github.com/streamvault/upload-gateway/pkg/errors"
)

// Envelope is the JSON wrapper MassTransit consumers expect around a message.
// Responders send replies to ResponseAddress and echo RequestID.
type Envelope struct {
	MessageID       string          `json:"messageId"`
	RequestID       string          `json:"requestId,omitempty"`
	SourceAddress   string          `json:"sourceAddress,omitempty"`
	ResponseAddress string          `json:"responseAddress,omitempty"`
	MessageType     []string        `json:"messageType"`
	SentTime        time.Time       `json:"sentTime"`
	Message         json.RawMessage `json:"message"`
}

type EventSerializer interface {
	Serialize(event Event) ([]byte, error)
	SerializeRequest(event Event) ([]byte, error)
	Deserialize(data []byte, v interface{}) error
}

type JSONEventSerializer struct{}

func NewJSONEventSerializer() *JSONEventSerializer {
	return &JSONEventSerializer{}
}

func (s *JSONEventSerializer) Serialize(event Event) ([]byte, error) {
	return s.serialize(event, "")
}

// SerializeRequest marks the envelope as a request whose id is the event id.
func (s *JSONEventSerializer) SerializeRequest(event Event) ([]byte, error) {
	return s.serialize(event, event.GetEventID())
}

func (s *JSONEventSerializer) serialize(event Event, requestID string) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, errors.NewInternalError("failed to serialize event").WithContext("error", err.Error())
	}

	data, err := json.Marshal(Envelope{
		MessageID:   event.GetEventID(),
		RequestID:   requestID,
		MessageType: []string{event.GetEventType().MessageURN()},
		SentTime:    event.GetTimestamp(),
		Message:     body,
	})
	if err != nil {
		return nil, errors.NewInternalError("failed to serialize envelope").WithContext("error", err.Error())
	}
	return data, nil
}

// Deserialize decodes the enveloped message into v. Payloads without an
// envelope are decoded as the bare message.
func (s *JSONEventSerializer) Deserialize(data []byte, v interface{}) error {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Message) > 0 && string(envelope.Message) != "null" {
		data = envelope.Message
	}

	if err := json.Unmarshal(data, v); err != nil {
		return errors.NewInternalError("failed to deserialize event").WithContext("error", err.Error())
	}
	return nil
}
