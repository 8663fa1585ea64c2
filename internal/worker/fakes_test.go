package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"eventfeed/internal/domain/consumer"
	"eventfeed/internal/domain/event"
)

// fakeLog is an in-memory event.Log with the same claim semantics as the
// Postgres repository: claims require a transaction in context, targeted
// claims fail fast on locked rows, opportunistic claims skip them.
type fakeLog struct {
	mu     sync.Mutex
	events map[int64]*event.Event
	nextID int64
	locked map[int64]*fakeTx

	scanErr     error
	truncateErr error

	truncateCalls int
}

func newFakeLog() *fakeLog {
	return &fakeLog{
		events: map[int64]*event.Event{},
		locked: map[int64]*fakeTx{},
	}
}

func (l *fakeLog) add(objectType, eventType string) *event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	e := &event.Event{
		ID:         l.nextID,
		ObjectType: objectType,
		EventType:  eventType,
		Payload:    []byte(`{}`),
		CreatedAt:  time.Now(),
	}
	l.events[e.ID] = e

	return e
}

func (l *fakeLog) ids() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]int64, 0, len(l.events))
	for id := range l.events {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

func (l *fakeLog) Append(ctx context.Context, objectType, eventType string, payload []byte) (*event.Event, error) {
	e := l.add(objectType, eventType)
	e.Payload = payload
	return e, nil
}

func (l *fakeLog) ScanSince(ctx context.Context, checkpoint int64, limit int) ([]*event.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.scanErr != nil {
		return nil, l.scanErr
	}

	var ids []int64
	for id := range l.events {
		if id > checkpoint {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*event.Event
	for _, id := range ids {
		if len(out) == limit {
			break
		}
		out = append(out, l.events[id])
	}

	return out, nil
}

func (l *fakeLog) ClaimOne(ctx context.Context, id int64) (*event.Event, error) {
	tx := txFrom(ctx)
	if tx == nil {
		return nil, event.ErrNoTransaction
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.events[id]
	if !ok {
		return nil, nil
	}

	if holder, held := l.locked[id]; held && holder != tx {
		return nil, event.ErrClaimContention
	}

	l.locked[id] = tx
	tx.claimed = append(tx.claimed, id)

	return e, nil
}

func (l *fakeLog) ClaimNext(ctx context.Context) (*event.Event, error) {
	tx := txFrom(ctx)
	if tx == nil {
		return nil, event.ErrNoTransaction
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var ids []int64
	for id := range l.events {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if holder, held := l.locked[id]; held && holder != tx {
			continue
		}

		l.locked[id] = tx
		tx.claimed = append(tx.claimed, id)

		return l.events[id], nil
	}

	return nil, nil
}

func (l *fakeLog) DeleteOne(ctx context.Context, id int64) (bool, error) {
	tx := txFrom(ctx)
	if tx == nil {
		return false, event.ErrNoTransaction
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.events[id]; !ok {
		return false, nil
	}

	tx.deletes = append(tx.deletes, id)

	return true, nil
}

func (l *fakeLog) DeleteUpTo(ctx context.Context, watermark int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.truncateCalls++

	if l.truncateErr != nil {
		return 0, l.truncateErr
	}

	var removed int64
	for id := range l.events {
		if id <= watermark {
			delete(l.events, id)
			removed++
		}
	}

	return removed, nil
}

type txKey struct{}

type fakeTx struct {
	claimed []int64
	deletes []int64
}

func txFrom(ctx context.Context) *fakeTx {
	tx, _ := ctx.Value(txKey{}).(*fakeTx)
	return tx
}

// fakeTxManager mimics the store transaction contract: deletes apply only on
// commit, and a rollback releases claim locks while keeping the rows.
type fakeTxManager struct {
	log *fakeLog
}

func (m *fakeTxManager) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	tx := &fakeTx{}

	err := tFunc(context.WithValue(ctx, txKey{}, tx))

	m.log.mu.Lock()
	defer m.log.mu.Unlock()

	if err == nil {
		for _, id := range tx.deletes {
			delete(m.log.events, id)
		}
	}

	for _, id := range tx.claimed {
		if m.log.locked[id] == tx {
			delete(m.log.locked, id)
		}
	}

	return err
}

// fakeStore is an in-memory consumer.Store.
type fakeStore struct {
	mu   sync.Mutex
	rows map[string]*consumer.Consumer

	upsertErr  error
	advanceErr error
	minErr     error
	noRows     bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]*consumer.Consumer{}}
}

func (s *fakeStore) seed(name string, checkpoint int64, topics ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(topics) == 0 {
		topics = []string{consumer.TopicWildcard}
	}
	s.rows[name] = &consumer.Consumer{
		Name:       name,
		Checkpoint: checkpoint,
		Topics:     topics,
		UpdatedAt:  time.Now(),
	}
}

func (s *fakeStore) checkpoint(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.rows[name]; ok {
		return c.Checkpoint
	}
	return -1
}

func (s *fakeStore) Upsert(ctx context.Context, name string) (*consumer.Consumer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.upsertErr != nil {
		return nil, s.upsertErr
	}

	c, ok := s.rows[name]
	if !ok {
		c = &consumer.Consumer{
			Name:       name,
			Checkpoint: 0,
			Topics:     []string{consumer.TopicWildcard},
		}
		s.rows[name] = c
	}
	c.UpdatedAt = time.Now()

	cp := *c
	cp.Topics = append([]string(nil), c.Topics...)

	return &cp, nil
}

func (s *fakeStore) AdvanceCheckpoint(ctx context.Context, name string, checkpoint int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.advanceErr != nil {
		return false, s.advanceErr
	}

	c, ok := s.rows[name]
	if !ok {
		return false, nil
	}

	if checkpoint > c.Checkpoint {
		c.Checkpoint = checkpoint
	}
	c.UpdatedAt = time.Now()

	return true, nil
}

func (s *fakeStore) MinCheckpoint(ctx context.Context) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.minErr != nil {
		return 0, false, s.minErr
	}

	if s.noRows || len(s.rows) == 0 {
		return 0, false, nil
	}

	first := true
	var minCheckpoint int64
	for _, c := range s.rows {
		if first || c.Checkpoint < minCheckpoint {
			minCheckpoint = c.Checkpoint
			first = false
		}
	}

	return minCheckpoint, true, nil
}

// recordingHandler collects the ids it was handed, optionally failing on one.
type recordingHandler struct {
	mu     sync.Mutex
	ids    []int64
	failOn int64
}

func (h *recordingHandler) handle(ctx context.Context, e *event.Event) error {
	if h.failOn != 0 && e.ID == h.failOn {
		return fmt.Errorf("handler rejected event %d", e.ID)
	}

	h.mu.Lock()
	h.ids = append(h.ids, e.ID)
	h.mu.Unlock()

	return nil
}

func (h *recordingHandler) seen() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]int64(nil), h.ids...)
}
