package event

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrClaimContention is returned when a targeted claim finds the row
	// already locked by another worker. It signals a duplicate notification,
	// not a failure; callers drop it silently.
	ErrClaimContention = errors.New("event already claimed by another worker")

	// ErrNoTransaction is returned by claim and delete operations invoked
	// outside a transaction context.
	ErrNoTransaction = errors.New("operation requires a transaction in context")
)

// Event is an immutable fact recorded alongside the domain mutation that
// produced it. IDs are store-assigned and strictly increasing; gaps are
// possible after truncation or rolled-back inserts.
type Event struct {
	ID         int64           `json:"id"`
	ObjectType string          `json:"object_type"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Log is the append-only, truncatable event store.
//
// Append must run on the caller's transaction (taken from ctx) so the event
// commits atomically with the domain change it describes. ClaimOne, ClaimNext
// and DeleteOne also require a transaction in ctx: the claim lock lives
// exactly as long as that transaction.
type Log interface {
	// Append inserts a new event and returns it with the assigned id.
	Append(ctx context.Context, objectType, eventType string, payload []byte) (*Event, error)

	// ScanSince returns up to limit events with id > checkpoint, ascending.
	ScanSince(ctx context.Context, checkpoint int64, limit int) ([]*Event, error)

	// ClaimOne locks exactly the given row without waiting. It returns
	// ErrClaimContention if another transaction holds the lock, and
	// (nil, nil) if the row no longer exists.
	ClaimOne(ctx context.Context, id int64) (*Event, error)

	// ClaimNext locks the lowest-id row not locked by anyone else,
	// skipping contended rows. Returns (nil, nil) when nothing is claimable.
	ClaimNext(ctx context.Context) (*Event, error)

	// DeleteOne removes a single event, normally inside the transaction
	// holding its claim lock. Reports whether a row was removed.
	DeleteOne(ctx context.Context, id int64) (bool, error)

	// DeleteUpTo removes all events with id <= watermark and returns the
	// number of rows removed.
	DeleteUpTo(ctx context.Context, watermark int64) (int64, error)
}
