package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventfeed/internal/backoff"
	"eventfeed/internal/domain/consumer"
	"eventfeed/internal/domain/event"
)

// TickResult is the terminal state of one run loop tick. A zero result with
// nil Err is an idle tick.
type TickResult struct {
	Processed int
	Skipped   int
	Truncated int64
	Err       error
}

// Productive reports whether the tick advanced the consumer's cursor at all.
// The backoff treats anything else, including failed ticks, as idle.
func (r TickResult) Productive() bool {
	return r.Processed > 0 || r.Skipped > 0
}

// RunLoop drives one named consumer: upsert the cursor row, scan past the
// checkpoint, dispatch matched events, advance the checkpoint, then truncate
// the log up to the global watermark.
//
// Several run loops, in one process or many, may poll the same log; the
// consumers table is the only coordination between them.
type RunLoop struct {
	name      string
	log       event.Log
	consumers consumer.Store
	handlers  *Registry
	backoff   *backoff.Backoff
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

type RunLoopConfig struct {
	Name         string
	BatchSize    int
	TickInterval time.Duration
	BackoffSteps int
}

func NewRunLoop(
	cfg RunLoopConfig,
	log event.Log,
	consumers consumer.Store,
	handlers *Registry,
	logger *slog.Logger,
) *RunLoop {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}

	return &RunLoop{
		name:      cfg.Name,
		log:       log,
		consumers: consumers,
		handlers:  handlers,
		backoff:   backoff.New(cfg.TickInterval, cfg.BackoffSteps),
		interval:  cfg.TickInterval,
		batchSize: cfg.BatchSize,
		logger:    logger.With("consumer", cfg.Name),
	}
}

// Run polls at the tick interval until ctx is cancelled. Idle and failed
// ticks feed the backoff; an in-flight tick always completes its own store
// operations before Run returns.
func (r *RunLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("consumer run loop started",
		"batch_size", r.batchSize, "tick_interval", r.interval.String())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !r.backoff.Ready(time.Now()) {
				continue
			}

			start := time.Now()
			// The tick finishes its store operations even if ctx is
			// cancelled mid-flight; only future ticks are prevented.
			res := r.Tick(context.WithoutCancel(ctx))
			if res.Err != nil {
				tickFailures.WithLabelValues(r.name).Inc()
				r.logger.Error("tick failed",
					"processed", res.Processed, "error", res.Err)
			}
			if res.Productive() {
				tickDuration.Observe(time.Since(start).Seconds())
			}

			r.backoff.Observe(res.Productive(), time.Now())
		}
	}
}

// Tick executes one full cursor pass. Progress made before a failing event
// is kept: the checkpoint advances to the last good id and the failing event
// is retried on a later tick.
func (r *RunLoop) Tick(ctx context.Context) TickResult {
	var res TickResult

	cons, err := r.consumers.Upsert(ctx, r.name)
	if err != nil {
		res.Err = fmt.Errorf("upsert consumer: %w", err)
		return res
	}

	filter := cons.Filter()

	events, err := r.log.ScanSince(ctx, cons.Checkpoint, r.batchSize)
	if err != nil {
		res.Err = fmt.Errorf("scan since %d: %w", cons.Checkpoint, err)
		return res
	}

	if len(events) == 0 {
		return res
	}

	tentative := cons.Checkpoint

	for _, e := range events {
		// A filtered event is permanently skipped, never deferred: the
		// cursor moves past it exactly as if it had been processed.
		if !filter.Matches(e.ObjectType) {
			tentative = e.ID
			res.Skipped++
			continue
		}

		if err := r.handlers.Handle(ctx, e); err != nil {
			res.Err = fmt.Errorf("process event %d: %w", e.ID, err)
			break
		}

		tentative = e.ID
		res.Processed++
	}

	if tentative > cons.Checkpoint {
		if _, err := r.consumers.AdvanceCheckpoint(ctx, r.name, tentative); err != nil {
			res.Err = fmt.Errorf("advance checkpoint to %d: %w", tentative, err)
			return res
		}
	}

	eventsProcessed.WithLabelValues(r.name).Add(float64(res.Processed))
	eventsSkipped.WithLabelValues(r.name).Add(float64(res.Skipped))

	res.Truncated = r.truncate(ctx, &res)

	return res
}

// truncate deletes everything at or below the watermark. An undefined
// watermark (zero registered consumers) skips truncation; it never means
// "truncate from zero".
func (r *RunLoop) truncate(ctx context.Context, res *TickResult) int64 {
	watermark, ok, err := r.consumers.MinCheckpoint(ctx)
	if err != nil {
		if res.Err == nil {
			res.Err = fmt.Errorf("compute watermark: %w", err)
		}
		return 0
	}
	if !ok {
		return 0
	}

	removed, err := r.log.DeleteUpTo(ctx, watermark)
	if err != nil {
		if res.Err == nil {
			res.Err = fmt.Errorf("truncate up to %d: %w", watermark, err)
		}
		return 0
	}

	if removed > 0 {
		eventsTruncated.Add(float64(removed))
		r.logger.Debug("truncated events", "watermark", watermark, "removed", removed)
	}

	return removed
}
