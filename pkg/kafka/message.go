package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is one event as handed to the writer. Topic is filled in by the
// producer.
type Message struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Topic     string
	Timestamp time.Time
}

const (
	HeaderEventID       = "event-id"
	HeaderEventType     = "event-type"
	HeaderCorrelationID = "correlation-id"
	HeaderSchemaVersion = "schema-version"
	HeaderSource        = "source"
	HeaderTimestamp     = "timestamp"

	headerOriginalTopic = "dlq-original-topic"
	headerFailure       = "dlq-error"
	headerFailedAt      = "dlq-failed-at"
)

// Envelope is the metadata every event is published with.
type Envelope struct {
	Type          string
	Source        string
	SchemaVersion string
	CorrelationID string
	OccurredAt    time.Time
}

// NewMessage JSON-encodes payload under key and stamps env onto the headers.
// Every call mints a new event id.
func NewMessage(key string, env Envelope, payload any) (Message, error) {
	if key == "" {
		return Message{}, ErrEmptyKey
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = time.Now()
	}

	headers := map[string]string{
		HeaderEventID:   uuid.New().String(),
		HeaderEventType: env.Type,
		HeaderTimestamp: env.OccurredAt.UTC().Format(time.RFC3339),
	}
	optional := map[string]string{
		HeaderSource:        env.Source,
		HeaderSchemaVersion: env.SchemaVersion,
		HeaderCorrelationID: env.CorrelationID,
	}
	for k, v := range optional {
		if v != "" {
			headers[k] = v
		}
	}

	return Message{
		Key:       key,
		Value:     value,
		Headers:   headers,
		Timestamp: env.OccurredAt,
	}, nil
}

func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Value, v)
}

func (m Message) EventID() string {
	return m.Headers[HeaderEventID]
}

func (m Message) EventType() string {
	return m.Headers[HeaderEventType]
}

func (m Message) CorrelationID() string {
	return m.Headers[HeaderCorrelationID]
}
