package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLoop(t *testing.T, name string, batchSize int, log *fakeLog, store *fakeStore, h Handler) *RunLoop {
	t.Helper()

	handlers := NewRegistry()
	require.NoError(t, handlers.RegisterDefault(h))

	return NewRunLoop(RunLoopConfig{
		Name:      name,
		BatchSize: batchSize,
	}, log, store, handlers, discardLogger())
}

func TestTickIdleOnEmptyLog(t *testing.T) {
	log := newFakeLog()
	store := newFakeStore()
	h := &recordingHandler{}

	loop := newTestLoop(t, "a", 10, log, store, h.handle)
	res := loop.Tick(context.Background())

	require.NoError(t, res.Err)
	assert.False(t, res.Productive())
	assert.Empty(t, h.seen())

	// Idle ticks skip truncation entirely.
	assert.Equal(t, 0, log.truncateCalls)
}

func TestTickProcessesBatchAndAdvancesCheckpoint(t *testing.T) {
	log := newFakeLog()
	store := newFakeStore()
	for i := 0; i < 3; i++ {
		log.add("X", "x.created")
	}

	h := &recordingHandler{}
	loop := newTestLoop(t, "A", 2, log, store, h.handle)

	res := loop.Tick(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, []int64{1, 2}, h.seen())
	assert.Equal(t, int64(2), store.checkpoint("A"))
}

func TestTruncationHeldBackBySlowestConsumer(t *testing.T) {
	log := newFakeLog()
	store := newFakeStore()
	for i := 0; i < 3; i++ {
		log.add("X", "x.created")
	}

	// "B" is registered but has never run: the watermark is min(2, 0) = 0
	// and nothing may be truncated.
	store.seed("B", 0)

	h := &recordingHandler{}
	loop := newTestLoop(t, "A", 2, log, store, h.handle)

	res := loop.Tick(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, int64(0), res.Truncated)
	assert.Equal(t, []int64{1, 2, 3}, log.ids())
}

func TestTruncationAdvancesWithWatermark(t *testing.T) {
	log := newFakeLog()
	store := newFakeStore()
	for i := 0; i < 3; i++ {
		log.add("X", "x.created")
	}

	// A already checkpointed 2; B now catches up to 3. The watermark is
	// A's 2, so events 1 and 2 go and event 3 survives.
	store.seed("A", 2)

	hB := &recordingHandler{}
	loopB := newTestLoop(t, "B", 10, log, store, hB.handle)

	res := loopB.Tick(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, int64(3), store.checkpoint("B"))
	assert.Equal(t, int64(2), res.Truncated)
	assert.Equal(t, []int64{3}, log.ids())
}

func TestFilteredEventsArePermanentlySkipped(t *testing.T) {
	log := newFakeLog()
	store := newFakeStore()
	log.add("X", "x.created")
	log.add("Y", "y.created")
	log.add("X", "x.updated")

	store.seed("picky", 0, "Y")

	h := &recordingHandler{}
	loop := newTestLoop(t, "picky", 10, log, store, h.handle)

	res := loop.Tick(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, []int64{2}, h.seen())

	// The cursor moved past the filtered events: they are never revisited.
	assert.Equal(t, int64(3), store.checkpoint("picky"))
}

func TestHandlerFailureStopsBatchButKeepsProgress(t *testing.T) {
	log := newFakeLog()
	store := newFakeStore()
	var ids []int64
	for i := 0; i < 4; i++ {
		ids = append(ids, log.add("X", "x.created").ID)
	}

	h := &recordingHandler{failOn: ids[2]}
	loop := newTestLoop(t, "A", 10, log, store, h.handle)

	res := loop.Tick(context.Background())

	require.Error(t, res.Err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, ids[1], store.checkpoint("A"))

	// The next tick resumes exactly at the failing event.
	h.failOn = 0
	res = loop.Tick(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, ids, h.seen())
	assert.Equal(t, ids[3], store.checkpoint("A"))
}

func TestStoreErrorAbortsTickWithoutCheckpointWrite(t *testing.T) {
	log := newFakeLog()
	store := newFakeStore()
	log.add("X", "x.created")
	store.seed("A", 0)

	log.scanErr = errors.New("connection reset")

	h := &recordingHandler{}
	loop := newTestLoop(t, "A", 10, log, store, h.handle)

	res := loop.Tick(context.Background())

	require.Error(t, res.Err)
	assert.False(t, res.Productive())
	assert.Equal(t, int64(0), store.checkpoint("A"))
	assert.Empty(t, h.seen())
}

func TestUndefinedWatermarkSkipsTruncation(t *testing.T) {
	log := newFakeLog()
	store := newFakeStore()
	log.add("X", "x.created")
	store.noRows = true

	h := &recordingHandler{}
	loop := newTestLoop(t, "A", 10, log, store, h.handle)

	res := loop.Tick(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Processed)

	// MinCheckpoint reported no consumers: fail safe, keep everything.
	assert.Equal(t, 0, log.truncateCalls)
	assert.Equal(t, []int64{1}, log.ids())
}

func TestCheckpointNeverDecreases(t *testing.T) {
	store := newFakeStore()
	store.seed("A", 5)

	ok, err := store.AdvanceCheckpoint(context.Background(), "A", 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(5), store.checkpoint("A"))

	_, err = store.AdvanceCheckpoint(context.Background(), "A", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), store.checkpoint("A"))
}

func TestScanReturnsOnlyEventsPastCheckpointAscending(t *testing.T) {
	log := newFakeLog()
	for i := 0; i < 5; i++ {
		log.add("X", "x.created")
	}

	events, err := log.ScanSince(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(3), events[0].ID)
	assert.Equal(t, int64(4), events[1].ID)
}
