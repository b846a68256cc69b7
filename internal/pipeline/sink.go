package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// FlushFunc writes one batch of buffered rows.
type FlushFunc[T any] func(ctx context.Context, rows []T) error

// BufferedSink collects rows from concurrent items and writes them in batches.
// When a batch write fails the sink retries it one item at a time, keyed by
// productOf, so a single bad item cannot hold back the others. Items whose
// own rows still fail are reported by Rejected.
type BufferedSink[T any] struct {
	name          string
	batchSize     int
	flushInterval time.Duration
	flush         FlushFunc[T]
	productOf     func(T) int64

	mu        sync.Mutex
	buffer    []T
	lastFlush time.Time
	flushed   int
	flushes   int
	rejected  map[int64]error
}

// NewBufferedSink creates a sink that flushes every cfg.BatchSize rows.
func NewBufferedSink[T any](cfg PipelineConfig, flush FlushFunc[T], productOf func(T) int64) *BufferedSink[T] {
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	return &BufferedSink[T]{
		name:          cfg.Name,
		batchSize:     batchSize,
		flushInterval: cfg.FlushInterval,
		flush:         flush,
		productOf:     productOf,
		buffer:        make([]T, 0, batchSize),
		lastFlush:     time.Now(),
		rejected:      make(map[int64]error),
	}
}

// Add buffers rows and flushes when the batch is full or the flush interval
// has elapsed.
func (s *BufferedSink[T]) Add(ctx context.Context, rows ...T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer = append(s.buffer, rows...)
	if s.shouldFlush() {
		s.flushLocked(ctx)
	}
}

func (s *BufferedSink[T]) shouldFlush() bool {
	if len(s.buffer) >= s.batchSize {
		return true
	}
	return s.flushInterval > 0 && len(s.buffer) > 0 && time.Since(s.lastFlush) >= s.flushInterval
}

// flushLocked always empties the buffer; rows that could not be written are
// accounted to their product in s.rejected.
func (s *BufferedSink[T]) flushLocked(ctx context.Context) {
	if len(s.buffer) == 0 {
		return
	}

	rows := s.buffer
	s.buffer = make([]T, 0, s.batchSize)
	s.lastFlush = time.Now()

	start := time.Now()
	err := s.flush(ctx, rows)
	if err == nil {
		log.Debug().Str("pipeline", s.name).Int("rows", len(rows)).Dur("took", time.Since(start)).Msg("sink flushed")
		s.flushed += len(rows)
		s.flushes++
		return
	}

	log.Warn().Err(err).Str("pipeline", s.name).Int("rows", len(rows)).Msg("sink batch flush failed, writing per product")
	s.flushPerProduct(ctx, rows)
}

func (s *BufferedSink[T]) flushPerProduct(ctx context.Context, rows []T) {
	var order []int64
	groups := make(map[int64][]T)
	for _, row := range rows {
		id := s.productOf(row)
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], row)
	}

	for _, id := range order {
		group := groups[id]
		if err := s.flush(ctx, group); err != nil {
			log.Warn().Err(err).Str("pipeline", s.name).Int64("product_id", id).Msg("sink rejected product rows")
			s.rejected[id] = fmt.Errorf("save %d rows: %w", len(group), err)
			continue
		}
		s.flushed += len(group)
		s.flushes++
	}
}

// Finalize flushes whatever is still buffered.
func (s *BufferedSink[T]) Finalize(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked(ctx)
}

// Rejected returns the products whose rows could not be written, with the
// write error for each.
func (s *BufferedSink[T]) Rejected() map[int64]error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int64]error, len(s.rejected))
	for id, err := range s.rejected {
		out[id] = err
	}
	return out
}

// SinkStats reports buffer state
type SinkStats struct {
	Buffered int
	Flushed  int
	Flushes  int
	Rejected int
}

// Stats returns current sink statistics
func (s *BufferedSink[T]) Stats() SinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SinkStats{Buffered: len(s.buffer), Flushed: s.flushed, Flushes: s.flushes, Rejected: len(s.rejected)}
}
