package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/DjordjeVuckovic/product-stream/internal/apperr"
	"github.com/DjordjeVuckovic/product-stream/internal/reader"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(src QuerySource, sink BatchSink[item], opts ...PipelineOption) *Pipeline[item] {
	return NewPipeline[item](src, itemMapper, sink, opts...)
}

func TestPipeline_Completeness(t *testing.T) {
	for _, rows := range []int{1, 499, 500, 501, 1000, 2345} {
		src := &fakeSource{rows: rows}
		sink := &recordingSink{}

		out := newTestPipeline(src, sink).Run(t.Context())

		require.True(t, out.Succeeded(), "rows=%d err=%v", rows, out.Err)
		assert.Equal(t, 0, out.ExitCode())
		assert.Equal(t, int64(rows), out.Persisted)
		assert.Equal(t, seq(rows), sink.flatten(), "rows=%d", rows)

		sizes := sink.sizes()
		for i, size := range sizes {
			if i < len(sizes)-1 {
				assert.Equal(t, DefaultBatchSize, size)
			} else {
				assert.GreaterOrEqual(t, size, 1)
				assert.LessOrEqual(t, size, DefaultBatchSize)
			}
		}
		if rows%DefaultBatchSize == 0 {
			assert.Equal(t, DefaultBatchSize, sizes[len(sizes)-1], "no short batch for exact multiples")
		}
		assert.Equal(t, 1, src.commits)
		assert.Equal(t, 0, src.rollbacks)
	}
}

func TestPipeline_LimitEnforcement(t *testing.T) {
	src := &fakeSource{rows: 5000}
	sink := &recordingSink{}

	out := newTestPipeline(src, sink, WithLimit(intPtr(1200))).Run(t.Context())

	require.True(t, out.Succeeded())
	assert.Equal(t, []int{500, 500, 200}, sink.sizes())
	assert.Equal(t, int64(1200), out.Persisted)
	assert.Equal(t, 3, out.Batches)
	assert.Equal(t, 1200, src.fetched)
}

func TestPipeline_EmptySource(t *testing.T) {
	src := &fakeSource{rows: 0}
	sink := &recordingSink{}

	out := newTestPipeline(src, sink).Run(t.Context())

	require.True(t, out.Succeeded())
	assert.Equal(t, 0, out.ExitCode())
	assert.Empty(t, sink.batches)
	assert.Zero(t, out.Persisted)
	assert.Equal(t, 1, src.commits)
	assert.Equal(t, 0, src.rollbacks)
}

func TestPipeline_Backpressure(t *testing.T) {
	src := &fakeSource{rows: 3000}
	var fetchedAtSave []int
	sink := &recordingSink{}
	sink.onSave = func(int) {
		fetchedAtSave = append(fetchedAtSave, src.fetched)
	}

	out := newTestPipeline(src, sink, WithBulk(100), WithCursorFetchSize(50)).Run(t.Context())

	require.True(t, out.Succeeded())
	assert.Zero(t, sink.overlaps)
	require.Len(t, fetchedAtSave, 30)
	for i, fetched := range fetchedAtSave {
		assert.Equal(t, (i+1)*100, fetched, "batch %d must not pull rows beyond its own", i+1)
	}
}

func TestPipeline_WriteFailure(t *testing.T) {
	src := &fakeSource{rows: 10_000}
	sink := &recordingSink{failAt: 3}
	l := &recordingListener{}

	out := newTestPipeline(src, sink, WithListener(l)).Run(t.Context())

	assert.False(t, out.Succeeded())
	assert.Equal(t, 1, out.ExitCode())
	var we *apperr.WriteError
	require.True(t, errors.As(out.Err, &we))
	assert.Equal(t, 3, we.Batch)
	assert.Equal(t, 500, we.Size)
	assert.ErrorIs(t, out.Err, errBoom)

	assert.Equal(t, []int{500, 500}, sink.sizes())
	assert.Equal(t, int64(1000), out.Persisted)
	assert.Equal(t, []int64{500, 1000}, l.totals)
	assert.LessOrEqual(t, src.fetched, 1500, "nothing fetched past the failed batch")
	assert.Equal(t, 0, src.commits)
	assert.Equal(t, 1, src.rollbacks)
}

func TestPipeline_MalformedRow(t *testing.T) {
	src := &fakeSource{
		rows: 1000,
		rowFn: func(i int) reader.RawRow {
			if i == 700 {
				return reader.RawRow{"seven hundred"}
			}
			return reader.RawRow{i}
		},
	}
	sink := &recordingSink{}

	out := newTestPipeline(src, sink).Run(t.Context())

	assert.Equal(t, 1, out.ExitCode())
	var me *apperr.MalformedRowError
	require.True(t, errors.As(out.Err, &me))
	assert.Equal(t, int64(700), me.Position)
	assert.Equal(t, []int{500}, sink.sizes(), "partial batch is discarded")
	assert.Equal(t, 1, src.rollbacks)
	assert.Equal(t, 0, src.commits)
}

func TestPipeline_CursorFailure(t *testing.T) {
	src := &fakeSource{rows: 2000, failPage: 3}
	sink := &recordingSink{}

	out := newTestPipeline(src, sink).Run(t.Context())

	assert.Equal(t, 1, out.ExitCode())
	var ce *apperr.CursorError
	require.True(t, errors.As(out.Err, &ce))
	assert.Equal(t, "cursor", apperr.Kind(out.Err))
	assert.Equal(t, []int{500, 500}, sink.sizes())
	assert.Equal(t, 1, src.closes())
	assert.Equal(t, 1, src.rollbacks)
}

func TestPipeline_Stop(t *testing.T) {
	src := &fakeSource{rows: 5000}
	sink := &recordingSink{}
	p := newTestPipeline(src, sink)
	sink.onSave = func(batch int) {
		if batch == 2 {
			p.Stop()
		}
	}

	out := p.Run(t.Context())

	assert.Equal(t, 1, out.ExitCode())
	assert.Equal(t, "cancellation", apperr.Kind(out.Err))
	assert.Equal(t, 1, src.rollbacks)
	assert.Equal(t, 0, src.commits)
	assert.LessOrEqual(t, src.fetched, 1000)
}

func TestPipeline_StopWithBufferedRows(t *testing.T) {
	src := &fakeSource{rows: 5000}
	sink := &recordingSink{}
	p := newTestPipeline(src, sink, WithBulk(100), WithCursorFetchSize(1000))
	sink.onSave = func(batch int) {
		if batch == 2 {
			p.Stop()
		}
	}

	out := p.Run(t.Context())

	assert.Equal(t, 1, out.ExitCode())
	assert.Equal(t, "cancellation", apperr.Kind(out.Err))
	assert.Equal(t, []int{100, 100}, sink.sizes(), "no batch persisted after Stop")
	assert.Equal(t, int64(200), out.Persisted)
	assert.Equal(t, 1000, src.fetched, "no page fetched after Stop")
	assert.Equal(t, 1, src.rollbacks)
	assert.Equal(t, 0, src.commits)
}

func TestPipeline_FinalBatchFailureRollsBack(t *testing.T) {
	src := &fakeSource{rows: 1200}
	sink := &recordingSink{failAt: 3}

	out := newTestPipeline(src, sink).Run(t.Context())

	assert.Equal(t, 1, out.ExitCode())
	var we *apperr.WriteError
	require.True(t, errors.As(out.Err, &we))
	assert.Equal(t, 3, we.Batch)
	assert.Equal(t, 200, we.Size)
	assert.Equal(t, 1200, src.fetched, "cursor was drained before the last batch")
	assert.Equal(t, 0, src.commits)
	assert.Equal(t, 1, src.rollbacks)
}

func TestPipeline_CommitFailure(t *testing.T) {
	src := &fakeSource{rows: 700, commitErr: errBoom}
	sink := &recordingSink{}

	out := newTestPipeline(src, sink).Run(t.Context())

	assert.Equal(t, 1, out.ExitCode())
	var ce *apperr.CursorError
	require.True(t, errors.As(out.Err, &ce))
	assert.Equal(t, "commit", ce.Op)
	assert.Equal(t, []int{500, 200}, sink.sizes(), "commit follows the last acknowledged batch")
	assert.Equal(t, 1, src.commits)
	assert.Equal(t, 0, src.rollbacks)
}

// panicSink panics on its at-th batch.
type panicSink struct {
	at    int
	saved int
}

func (s *panicSink) SaveBulk(context.Context, []item) error {
	s.saved++
	if s.saved == s.at {
		panic("sink exploded")
	}
	return nil
}

func TestPipeline_PanicIsRecovered(t *testing.T) {
	src := &fakeSource{rows: 2000}
	sink := &panicSink{at: 2}
	p := newTestPipeline(src, sink)

	var out Outcome
	require.NotPanics(t, func() {
		out = p.Run(t.Context())
	})

	assert.Equal(t, 1, out.ExitCode())
	assert.Equal(t, "panic", apperr.Kind(out.Err))
	assert.EqualError(t, out.Err, "pipeline panic: sink exploded")
	assert.Equal(t, int64(500), out.Persisted)
	assert.Equal(t, 1, src.rollbacks)
	assert.Equal(t, 0, src.commits)
	assert.Equal(t, StateDone, p.State())
	assert.Equal(t, out, p.Run(t.Context()), "later runs return the recovered outcome")
}

func TestPipeline_RunsOnce(t *testing.T) {
	src := &fakeSource{rows: 10}
	sink := &recordingSink{}
	id := uuid.New()
	p := newTestPipeline(src, sink, WithRunID(id))

	first := p.Run(t.Context())
	second := p.Run(t.Context())

	assert.Equal(t, first, second)
	assert.Equal(t, id, first.RunID)
	assert.Equal(t, 1, src.begins)
	assert.Len(t, sink.batches, 1)
	assert.Equal(t, StateDone, p.State())
}

func TestPipeline_ProgressMilestones(t *testing.T) {
	src := &fakeSource{rows: 25_000}
	sink := &recordingSink{}
	l := &recordingListener{}

	out := newTestPipeline(src, sink, WithListener(l)).Run(t.Context())

	require.True(t, out.Succeeded())
	assert.Equal(t, []int64{10_000, 20_000}, l.milestones)
	assert.Len(t, sink.batches, 50)
}

func TestPipeline_StatusBoard(t *testing.T) {
	src := &fakeSource{rows: 1500}
	sink := &recordingSink{}
	id := uuid.New()
	board := NewStatusBoard(id, nil)
	p := newTestPipeline(src, sink, WithRunID(id), WithListener(board), WithProgressInterval(1000))
	board.Track(p)

	assert.Equal(t, "idle", board.Snapshot().State)

	p.Run(t.Context())

	snap := board.Snapshot()
	assert.Equal(t, id.String(), snap.RunID)
	assert.Equal(t, "done", snap.State)
	assert.Equal(t, int64(1500), snap.Persisted)
	assert.Equal(t, int64(3), snap.Batches)
	assert.Equal(t, int64(1000), snap.Milestone)
}
