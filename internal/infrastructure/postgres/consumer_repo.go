package postgres

import (
	"context"
	"fmt"

	"eventfeed/internal/domain/consumer"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConsumerRepository implements consumer.Store. Each consumer is one row;
// the UPDATE in AdvanceCheckpoint takes the row lock that serializes racing
// instances of a same-named consumer.
type ConsumerRepository struct {
	pool *pgxpool.Pool
}

func NewConsumerRepository(pool *pgxpool.Pool) *ConsumerRepository {
	return &ConsumerRepository{pool: pool}
}

func (r *ConsumerRepository) Upsert(ctx context.Context, name string) (*consumer.Consumer, error) {
	const sql = `
		INSERT INTO consumers (name, checkpoint, topics, updated_at)
		VALUES ($1, 0, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET updated_at = NOW()
		RETURNING name, checkpoint, topics, updated_at
	`

	c := &consumer.Consumer{}
	err := r.pool.QueryRow(ctx, sql, name, []string{consumer.TopicWildcard}).
		Scan(&c.Name, &c.Checkpoint, &c.Topics, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert consumer %q: %w", name, err)
	}

	return c, nil
}

func (r *ConsumerRepository) AdvanceCheckpoint(ctx context.Context, name string, checkpoint int64) (bool, error) {
	// GREATEST keeps the checkpoint monotone even if two instances of the
	// same consumer race; the slower one cannot drag the cursor backwards.
	const sql = `
		UPDATE consumers
		SET checkpoint = GREATEST(checkpoint, $2), updated_at = NOW()
		WHERE name = $1
	`

	tag, err := r.pool.Exec(ctx, sql, name, checkpoint)
	if err != nil {
		return false, fmt.Errorf("advance checkpoint for %q: %w", name, err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *ConsumerRepository) MinCheckpoint(ctx context.Context) (int64, bool, error) {
	const sql = `SELECT MIN(checkpoint) FROM consumers`

	var watermark *int64
	if err := r.pool.QueryRow(ctx, sql).Scan(&watermark); err != nil {
		return 0, false, fmt.Errorf("min checkpoint: %w", err)
	}

	// NULL means zero consumer rows: the watermark is undefined and callers
	// must not truncate. Zero would silently mean "truncate nothing is safe"
	// only by accident.
	if watermark == nil {
		return 0, false, nil
	}

	return *watermark, true, nil
}

// List returns all consumer rows, for introspection endpoints and tooling.
func (r *ConsumerRepository) List(ctx context.Context) ([]*consumer.Consumer, error) {
	const sql = `
		SELECT name, checkpoint, topics, updated_at
		FROM consumers
		ORDER BY name ASC
	`

	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("list consumers: %w", err)
	}
	defer rows.Close()

	var consumers []*consumer.Consumer
	for rows.Next() {
		c := &consumer.Consumer{}
		if err := rows.Scan(&c.Name, &c.Checkpoint, &c.Topics, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan consumer row: %w", err)
		}
		consumers = append(consumers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consumer rows: %w", err)
	}

	return consumers, nil
}
