package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ActionLog is the append-only sink for committed actions.
type ActionLog interface {
	AppendAction(ctx context.Context, rec ActionRecord) error
	ListActions(ctx context.Context, f ActionFilter) ([]ActionRecord, error)
	LastHandNumber(ctx context.Context, tableID int) (int, error)
}

var _ ActionLog = (*Store)(nil)
var _ ActionLog = (*MemoryActionLog)(nil)

// MemoryActionLog keeps records in process memory. Used when no database is
// configured and in tests.
type MemoryActionLog struct {
	mu      sync.RWMutex
	records []ActionRecord
}

func NewMemoryActionLog() *MemoryActionLog {
	return &MemoryActionLog{}
}

func (m *MemoryActionLog) AppendAction(_ context.Context, rec ActionRecord) error {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
	return nil
}

func (m *MemoryActionLog) ListActions(_ context.Context, f ActionFilter) ([]ActionRecord, error) {
	m.mu.RLock()
	out := make([]ActionRecord, 0)
	for _, rec := range m.records {
		if rec.TableID != f.TableID {
			continue
		}
		if f.HandNumber > 0 && rec.HandNumber != f.HandNumber {
			continue
		}
		out = append(out, rec)
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].HandNumber != out[j].HandNumber {
			return out[i].HandNumber > out[j].HandNumber
		}
		return out[i].Sequence < out[j].Sequence
	})
	if limit := clampLimit(f.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryActionLog) LastHandNumber(_ context.Context, tableID int) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, rec := range m.records {
		if rec.TableID == tableID && rec.HandNumber > n {
			n = rec.HandNumber
		}
	}
	return n, nil
}

// AsyncRecorder drains records to an ActionLog on a single goroutine so
// records land in the order table actors submitted them. Record never blocks.
type AsyncRecorder struct {
	sink ActionLog

	mu      sync.Mutex
	queue   []ActionRecord
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	timeout time.Duration
}

func NewAsyncRecorder(sink ActionLog) *AsyncRecorder {
	r := &AsyncRecorder{
		sink:    sink,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		timeout: 5 * time.Second,
	}
	go r.run()
	return r
}

func (r *AsyncRecorder) Record(rec ActionRecord) {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		log.Warn().Int("table_id", rec.TableID).Int("hand_number", rec.HandNumber).Msg("action_record_after_close")
		return
	}
	r.queue = append(r.queue, rec)
	select {
	case r.wake <- struct{}{}:
	default:
	}
	r.mu.Unlock()
}

// Close stops accepting records and waits until the queue is drained or ctx
// is done.
func (r *AsyncRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.wake)
	}
	r.mu.Unlock()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *AsyncRecorder) run() {
	defer close(r.done)
	for {
		batch, closed := r.take()
		for _, rec := range batch {
			r.write(rec)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-r.wake
	}
}

func (r *AsyncRecorder) take() ([]ActionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch := r.queue
	r.queue = nil
	return batch, r.closed
}

func (r *AsyncRecorder) write(rec ActionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.sink.AppendAction(ctx, rec); err != nil {
		metricActionWriteErrors.Add(1)
		log.Error().
			Err(err).
			Int("table_id", rec.TableID).
			Int("hand_number", rec.HandNumber).
			Int("action_sequence", rec.Sequence).
			Msg("action_record_write_failed")
		return
	}
	metricActionWrites.Add(1)
}
