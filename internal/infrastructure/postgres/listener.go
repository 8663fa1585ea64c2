package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Listener turns Postgres NOTIFY payloads on the feed channel into event id
// hints. Delivery is fire-and-forget: a dropped connection loses anything
// sent while reconnecting, which the claim worker's fallback sweep covers.
type Listener struct {
	pool    *pgxpool.Pool
	channel string
	logger  *slog.Logger

	hints chan int64
}

func NewListener(pool *pgxpool.Pool, channel string, logger *slog.Logger) *Listener {
	return &Listener{
		pool:    pool,
		channel: channel,
		logger:  logger,
		hints:   make(chan int64, 64),
	}
}

// Hints is the stream of event ids announced by producers.
func (l *Listener) Hints() <-chan int64 {
	return l.hints
}

// Run holds a dedicated connection in LISTEN mode until ctx is cancelled,
// reconnecting with a flat delay on connection loss.
func (l *Listener) Run(ctx context.Context) error {
	const reconnectDelay = 2 * time.Second

	for {
		if err := l.listen(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.logger.Error("listener connection lost", "channel", l.channel, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	// The connection saw LISTEN; hijack it out of the pool so it is closed
	// rather than reused with leftover subscription state.
	raw := conn.Hijack()
	defer raw.Close(context.Background())

	if _, err := raw.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen on %q: %w", l.channel, err)
	}

	l.logger.Info("listening for event notifications", "channel", l.channel)

	for {
		notification, err := raw.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}

		id, err := strconv.ParseInt(notification.Payload, 10, 64)
		if err != nil {
			l.logger.Warn("ignoring malformed notification payload",
				"channel", l.channel, "payload", notification.Payload)
			continue
		}

		select {
		case l.hints <- id:
		default:
			// A full buffer means the worker is behind; the sweep will
			// pick the event up, so dropping the hint is safe.
			l.logger.Debug("dropping notification hint", "event_id", id)
		}
	}
}

