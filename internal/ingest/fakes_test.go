package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/DjordjeVuckovic/product-stream/internal/reader"
)

var errBoom = errors.New("boom")

// fakeSource serves rows {i, "item-i"} and records the transaction lifecycle.
type fakeSource struct {
	rows      int
	failPage  int // 1-based page that fails, 0 = never
	beginErr  error
	commitErr error
	rowFn     func(i int) reader.RawRow

	begins    int
	limits    []*int
	pages     []int
	fetched   int
	commits   int
	rollbacks int
}

func (s *fakeSource) Begin(_ context.Context, limit *int) (Pager, error) {
	s.begins++
	s.limits = append(s.limits, limit)
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	total := s.rows
	if limit != nil && *limit < total {
		total = *limit
	}
	return &fakePager{src: s, total: total}, nil
}

type fakePager struct {
	src   *fakeSource
	total int
	pos   int
	page  int
	done  bool
}

func (p *fakePager) FetchPage(ctx context.Context, size int) ([]reader.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.page++
	p.src.pages = append(p.src.pages, size)
	if p.src.failPage == p.page {
		return nil, errBoom
	}
	var out []reader.RawRow
	for len(out) < size && p.pos < p.total {
		out = append(out, p.src.row(p.pos))
		p.pos++
	}
	p.src.fetched += len(out)
	return out, nil
}

func (p *fakePager) Commit(context.Context) error {
	p.src.commits++
	return p.src.commitErr
}

func (p *fakePager) Rollback(context.Context) error {
	p.src.rollbacks++
	return nil
}

func (s *fakeSource) row(i int) reader.RawRow {
	if s.rowFn != nil {
		return s.rowFn(i)
	}
	return reader.RawRow{i}
}

func (s *fakeSource) closes() int {
	return s.commits + s.rollbacks
}

type item struct {
	N int
}

var itemMapper = reader.MapperFunc[item](func(row reader.RawRow) (item, error) {
	n, ok := row[0].(int)
	if !ok {
		return item{}, errors.New("not an int")
	}
	return item{N: n}, nil
})

// recordingSink keeps every batch and detects overlapping writes.
type recordingSink struct {
	mu       sync.Mutex
	batches  [][]item
	failAt   int // 1-based batch that fails, 0 = never
	inFlight atomic.Int32
	overlaps int
	onSave   func(batch int)
}

func (s *recordingSink) SaveBulk(_ context.Context, items []item) error {
	if s.inFlight.Add(1) > 1 {
		s.overlaps++
	}
	defer s.inFlight.Add(-1)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.batches) + 1
	if s.onSave != nil {
		s.onSave(n)
	}
	if s.failAt == n {
		return errBoom
	}
	s.batches = append(s.batches, items)
	return nil
}

func (s *recordingSink) sizes() []int {
	sizes := make([]int, len(s.batches))
	for i, b := range s.batches {
		sizes[i] = len(b)
	}
	return sizes
}

func (s *recordingSink) flatten() []int {
	var out []int
	for _, b := range s.batches {
		for _, it := range b {
			out = append(out, it.N)
		}
	}
	return out
}

type recordingListener struct {
	milestones []int64
	totals     []int64
}

func (l *recordingListener) BatchPersisted(total int64, _ int) {
	l.totals = append(l.totals, total)
}

func (l *recordingListener) Milestone(count int64) {
	l.milestones = append(l.milestones, count)
}

// sliceSequence is an in-memory Sequence with an optional trailing failure.
type sliceSequence[T any] struct {
	items []T
	err   error
	pos   int
	cur   T
	ended bool
}

func (s *sliceSequence[T]) Next(context.Context) bool {
	if s.pos >= len(s.items) {
		s.ended = true
		return false
	}
	s.cur = s.items[s.pos]
	s.pos++
	return true
}

func (s *sliceSequence[T]) Value() T {
	return s.cur
}

func (s *sliceSequence[T]) Err() error {
	if s.ended {
		return s.err
	}
	return nil
}

func intPtr(n int) *int {
	return &n
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
