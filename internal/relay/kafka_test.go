package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"eventfeed/internal/domain/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	keys   [][]byte
	values [][]byte
	err    error
}

func (w *fakeWriter) SendMessage(ctx context.Context, key, value []byte) error {
	if w.err != nil {
		return w.err
	}
	w.keys = append(w.keys, key)
	w.values = append(w.values, value)
	return nil
}

func TestKafkaMirrorPublishesEnvelope(t *testing.T) {
	w := &fakeWriter{}
	m := NewKafkaMirror(w, slog.New(slog.NewTextHandler(io.Discard, nil)))

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := &event.Event{
		ID:         7,
		ObjectType: "order",
		EventType:  "order.created",
		Payload:    []byte(`{"order_id":"abc"}`),
		CreatedAt:  created,
	}

	require.NoError(t, m.Handle(context.Background(), e))
	require.Len(t, w.values, 1)

	assert.Equal(t, []byte("order"), w.keys[0])

	var msg Message
	require.NoError(t, json.Unmarshal(w.values[0], &msg))
	assert.Equal(t, int64(7), msg.ID)
	assert.Equal(t, "order", msg.ObjectType)
	assert.Equal(t, "order.created", msg.EventType)
	assert.True(t, created.Equal(msg.OccurredAt))
	assert.JSONEq(t, `{"order_id":"abc"}`, string(msg.Payload))
}

func TestKafkaMirrorPropagatesSendErrors(t *testing.T) {
	sendErr := errors.New("kafka: broker unavailable")
	w := &fakeWriter{err: sendErr}
	m := NewKafkaMirror(w, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := m.Handle(context.Background(), &event.Event{ID: 1, ObjectType: "order", Payload: []byte(`{}`)})
	assert.ErrorIs(t, err, sendErr)
}
