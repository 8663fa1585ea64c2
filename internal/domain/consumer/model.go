package consumer

import (
	"context"
	"time"
)

// TopicWildcard subscribes a consumer to every object type.
const TopicWildcard = "all"

// Consumer is a named cursor over the event log. Checkpoint is the last
// event id the consumer has fully accounted for, processed or skipped.
type Consumer struct {
	Name       string    `json:"name"`
	Checkpoint int64     `json:"checkpoint"`
	Topics     []string  `json:"topics"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store is the durable registry of consumer cursors.
type Store interface {
	// Upsert creates the consumer with checkpoint 0 and the wildcard topic
	// if absent; on conflict only updated_at is refreshed. Returns the
	// current row either way.
	Upsert(ctx context.Context, name string) (*Consumer, error)

	// AdvanceCheckpoint writes the new checkpoint under the consumer's row
	// lock. The stored value never decreases; calling with an older value
	// is a no-op beyond updated_at. Reports whether a row matched.
	AdvanceCheckpoint(ctx context.Context, name string, checkpoint int64) (bool, error)

	// MinCheckpoint returns the truncation watermark: the minimum checkpoint
	// across all consumers. ok is false when no consumers exist, in which
	// case callers must skip truncation entirely.
	MinCheckpoint(ctx context.Context) (watermark int64, ok bool, err error)
}
