package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventfeed/internal/backoff"
	"eventfeed/internal/domain/event"
)

// Transactor runs a function inside a store transaction carried in ctx.
type Transactor interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
}

// ClaimWorker drains the log one event at a time under exclusive row locks.
// It reacts to push notification hints and runs a periodic fallback sweep for
// events whose hint was lost; both paths may race over the same id, which the
// store's claim semantics resolve without extra coordination.
type ClaimWorker struct {
	tx         Transactor
	log        event.Log
	handlers   *Registry
	backoff    *backoff.Backoff
	interval   time.Duration
	sweepLimit int
	hints      <-chan int64
	logger     *slog.Logger
}

type ClaimWorkerConfig struct {
	TickInterval time.Duration
	SweepLimit   int
	BackoffSteps int
}

func NewClaimWorker(
	cfg ClaimWorkerConfig,
	tx Transactor,
	log event.Log,
	handlers *Registry,
	hints <-chan int64,
	logger *slog.Logger,
) *ClaimWorker {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.SweepLimit <= 0 {
		cfg.SweepLimit = 16
	}

	return &ClaimWorker{
		tx:         tx,
		log:        log,
		handlers:   handlers,
		backoff:    backoff.New(cfg.TickInterval, cfg.BackoffSteps),
		interval:   cfg.TickInterval,
		sweepLimit: cfg.SweepLimit,
		hints:      hints,
		logger:     logger,
	}
}

// Run consumes notification hints and sweeps on the tick interval until ctx
// is cancelled. A claim transaction in flight always runs to commit or
// rollback; cancellation only prevents further claims.
func (w *ClaimWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("claim worker started",
		"sweep_limit", w.sweepLimit, "tick_interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			return nil

		case id, open := <-w.hints:
			if !open {
				return nil
			}
			if err := w.ProcessHint(context.WithoutCancel(ctx), id); err != nil {
				claimFailures.Inc()
				w.logger.Error("hinted claim failed", "event_id", id, "error", err)
			}

		case <-ticker.C:
			if !w.backoff.Ready(time.Now()) {
				continue
			}
			n := w.Sweep(context.WithoutCancel(ctx))
			w.backoff.Observe(n > 0, time.Now())
		}
	}
}

// ProcessHint claims exactly the announced event. Contention means another
// worker already owns it, so the duplicate hint is dropped silently; a
// missing row means it was already processed. On handler failure the
// transaction rolls back, releasing the lock and keeping the row.
func (w *ClaimWorker) ProcessHint(ctx context.Context, id int64) error {
	return w.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		e, err := w.log.ClaimOne(txCtx, id)
		if err != nil {
			if errors.Is(err, event.ErrClaimContention) {
				claimContention.Inc()
				w.logger.Debug("duplicate notification", "event_id", id)
				return nil
			}
			return err
		}
		if e == nil {
			return nil
		}

		return w.finishClaim(txCtx, e)
	})
}

// Sweep opportunistically claims up to the per-tick limit, skipping rows
// locked by other workers. It returns the number of events processed.
func (w *ClaimWorker) Sweep(ctx context.Context) int {
	processed := 0

	for processed < w.sweepLimit {
		var claimed bool

		err := w.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
			e, err := w.log.ClaimNext(txCtx)
			if err != nil {
				return err
			}
			if e == nil {
				return nil
			}

			claimed = true

			return w.finishClaim(txCtx, e)
		})
		if err != nil {
			claimFailures.Inc()
			w.logger.Error("sweep claim failed", "error", err)
			return processed
		}
		if !claimed {
			return processed
		}

		processed++
	}

	return processed
}

// finishClaim processes a locked event and deletes it inside the same
// transaction, so the delete commits only if the handler succeeded.
func (w *ClaimWorker) finishClaim(ctx context.Context, e *event.Event) error {
	if err := w.handlers.Handle(ctx, e); err != nil {
		return fmt.Errorf("process event %d: %w", e.ID, err)
	}

	if _, err := w.log.DeleteOne(ctx, e.ID); err != nil {
		return fmt.Errorf("delete event %d: %w", e.ID, err)
	}

	claimsProcessed.Inc()

	return nil
}
