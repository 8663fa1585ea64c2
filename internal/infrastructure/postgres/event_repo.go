package postgres

import (
	"context"
	"errors"
	"fmt"

	"eventfeed/internal/domain/event"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = "id, object_type, event_type, payload, created_at"

// EventRepository implements event.Log on top of a single events table.
//
// Scans and truncation run on the pool in their own short transactions.
// Claim and delete-one operations require a caller transaction in context:
// the row lock taken by ClaimOne/ClaimNext is held until that transaction
// commits or rolls back.
type EventRepository struct {
	pool    *pgxpool.Pool
	channel string
}

func NewEventRepository(pool *pgxpool.Pool, notifyChannel string) *EventRepository {
	return &EventRepository{pool: pool, channel: notifyChannel}
}

func (r *EventRepository) Append(ctx context.Context, objectType, eventType string, payload []byte) (*event.Event, error) {
	const sql = `
		INSERT INTO events (object_type, event_type, payload)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	var executor interface {
		QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	} = r.pool

	if tx := GetTx(ctx); tx != nil {
		executor = tx
	}

	e := &event.Event{
		ObjectType: objectType,
		EventType:  eventType,
		Payload:    payload,
	}

	if err := executor.QueryRow(ctx, sql, objectType, eventType, payload).Scan(&e.ID, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	return e, nil
}

// Notify publishes the event id on the feed channel. Called on the appending
// transaction, Postgres delivers it only after commit, so listeners never see
// hints for rows that rolled back.
func (r *EventRepository) Notify(ctx context.Context, id int64) error {
	const sql = `SELECT pg_notify($1, $2::text)`

	var executor interface {
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	} = r.pool

	if tx := GetTx(ctx); tx != nil {
		executor = tx
	}

	if _, err := executor.Exec(ctx, sql, r.channel, id); err != nil {
		return fmt.Errorf("notify event %d: %w", id, err)
	}

	return nil
}

func (r *EventRepository) ScanSince(ctx context.Context, checkpoint int64, limit int) ([]*event.Event, error) {
	const sql = `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, sql, checkpoint, limit)
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (r *EventRepository) ClaimOne(ctx context.Context, id int64) (*event.Event, error) {
	const sql = `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = $1
		FOR UPDATE NOWAIT
	`

	tx := GetTx(ctx)
	if tx == nil {
		return nil, event.ErrNoTransaction
	}

	e, err := scanEvent(tx.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if isLockNotAvailable(err) {
			return nil, event.ErrClaimContention
		}
		return nil, fmt.Errorf("claim event %d: %w", id, err)
	}

	return e, nil
}

func (r *EventRepository) ClaimNext(ctx context.Context) (*event.Event, error) {
	const sql = `
		SELECT ` + eventColumns + `
		FROM events
		ORDER BY id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	tx := GetTx(ctx)
	if tx == nil {
		return nil, event.ErrNoTransaction
	}

	e, err := scanEvent(tx.QueryRow(ctx, sql))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim next event: %w", err)
	}

	return e, nil
}

func (r *EventRepository) DeleteOne(ctx context.Context, id int64) (bool, error) {
	const sql = `DELETE FROM events WHERE id = $1`

	tx := GetTx(ctx)
	if tx == nil {
		return false, event.ErrNoTransaction
	}

	tag, err := tx.Exec(ctx, sql, id)
	if err != nil {
		return false, fmt.Errorf("delete event %d: %w", id, err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *EventRepository) DeleteUpTo(ctx context.Context, watermark int64) (int64, error) {
	const sql = `DELETE FROM events WHERE id <= $1`

	tag, err := r.pool.Exec(ctx, sql, watermark)
	if err != nil {
		return 0, fmt.Errorf("truncate events: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanEvent(row pgx.Row) (*event.Event, error) {
	e := &event.Event{}
	if err := row.Scan(&e.ID, &e.ObjectType, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
		return nil, err
	}
	return e, nil
}

func collectEvents(rows pgx.Rows) ([]*event.Event, error) {
	var events []*event.Event
	for rows.Next() {
		e := &event.Event{}
		if err := rows.Scan(&e.ID, &e.ObjectType, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return events, nil
}
