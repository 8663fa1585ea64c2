// Package relay mirrors the event feed into external stream transports. It
// is a consumer of the core's public contract, wired into a cursor run loop
// like any other handler.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"eventfeed/internal/domain/event"
)

// Message is the envelope published to Kafka. Payload is the raw JSON
// document recorded at append time.
type Message struct {
	ID         int64           `json:"id"`
	ObjectType string          `json:"object_type"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type messageWriter interface {
	SendMessage(ctx context.Context, key, value []byte) error
}

// KafkaMirror republishes every event it is handed. Keying by object type
// keeps each entity's events on one partition, preserving the per-consumer
// ascending order downstream.
type KafkaMirror struct {
	producer messageWriter
	logger   *slog.Logger
}

func NewKafkaMirror(producer messageWriter, logger *slog.Logger) *KafkaMirror {
	return &KafkaMirror{producer: producer, logger: logger}
}

// Handle implements the run loop handler contract.
func (m *KafkaMirror) Handle(ctx context.Context, e *event.Event) error {
	msg := Message{
		ID:         e.ID,
		ObjectType: e.ObjectType,
		EventType:  e.EventType,
		OccurredAt: e.CreatedAt,
		Payload:    e.Payload,
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event %d: %w", e.ID, err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := m.producer.SendMessage(sendCtx, []byte(e.ObjectType), value); err != nil {
		return fmt.Errorf("publish event %d: %w", e.ID, err)
	}

	m.logger.Debug("mirrored event", "event_id", e.ID, "event_type", e.EventType)

	return nil
}
