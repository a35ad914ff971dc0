package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DjordjeVuckovic/product-stream/internal/apperr"
	"github.com/DjordjeVuckovic/product-stream/internal/reader"
	"github.com/google/uuid"
)

type State int32

const (
	StateIdle State = iota
	StateRunning
	StateSucceeded
	StateFailed
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// PipelineConfig defines the tunables of a pipeline run.
type PipelineConfig struct {
	Name             string
	Limit            *int
	BatchSize        int
	FetchSize        int
	ProgressInterval int64
}

type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	config    PipelineConfig
	runID     uuid.UUID
	log       *slog.Logger
	listeners []ProgressListener
}

func WithLimit(limit *int) PipelineOption {
	return func(o *pipelineOptions) {
		o.config.Limit = limit
	}
}

func WithBulk(size int) PipelineOption {
	return func(o *pipelineOptions) {
		if size > 0 {
			o.config.BatchSize = size
		}
	}
}

func WithCursorFetchSize(size int) PipelineOption {
	return func(o *pipelineOptions) {
		if size > 0 {
			o.config.FetchSize = size
		}
	}
}

func WithProgressInterval(interval int64) PipelineOption {
	return func(o *pipelineOptions) {
		if interval > 0 {
			o.config.ProgressInterval = interval
		}
	}
}

func WithName(name string) PipelineOption {
	return func(o *pipelineOptions) {
		o.config.Name = name
	}
}

func WithRunID(id uuid.UUID) PipelineOption {
	return func(o *pipelineOptions) {
		o.runID = id
	}
}

func WithLogger(log *slog.Logger) PipelineOption {
	return func(o *pipelineOptions) {
		o.log = log
	}
}

// WithListener registers an additional progress listener. Milestones are
// always logged.
func WithListener(l ProgressListener) PipelineOption {
	return func(o *pipelineOptions) {
		o.listeners = append(o.listeners, l)
	}
}

// Pipeline streams rows from a QuerySource through a mapper and a batcher
// into a BatchSink, one batch in flight at a time. A run always ends with
// exactly one Outcome; failures never escape Run as errors or panics.
//
// A Pipeline runs once. Later calls to Run return the first Outcome.
type Pipeline[T any] struct {
	source QuerySource
	mapper reader.Mapper[T]
	sink   BatchSink[T]

	config    PipelineConfig
	runID     uuid.UUID
	log       *slog.Logger
	listeners []ProgressListener

	state   atomic.Int32
	once    sync.Once
	outcome Outcome

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewPipeline[T any](source QuerySource, mapper reader.Mapper[T], sink BatchSink[T], opts ...PipelineOption) *Pipeline[T] {
	o := pipelineOptions{
		config: PipelineConfig{
			Name:             "product-import",
			BatchSize:        DefaultBatchSize,
			FetchSize:        DefaultFetchSize,
			ProgressInterval: DefaultProgressInterval,
		},
		runID: uuid.New(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}

	log := o.log.With("pipeline", o.config.Name, "run_id", o.runID.String())
	return &Pipeline[T]{
		source:    source,
		mapper:    mapper,
		sink:      sink,
		config:    o.config,
		runID:     o.runID,
		log:       log,
		listeners: append([]ProgressListener{NewLogReporter(log)}, o.listeners...),
	}
}

func (p *Pipeline[T]) RunID() uuid.UUID {
	return p.runID
}

func (p *Pipeline[T]) Config() PipelineConfig {
	return p.config
}

// State is safe to call from other goroutines.
func (p *Pipeline[T]) State() State {
	return State(p.state.Load())
}

// Run drives the pipeline to the end and returns its Outcome.
func (p *Pipeline[T]) Run(ctx context.Context) Outcome {
	p.once.Do(func() {
		p.outcome = p.run(ctx)
	})
	return p.outcome
}

// Stop cancels a running pipeline. The run ends with a cancellation failure
// and the source transaction is rolled back.
func (p *Pipeline[T]) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.log.Info("Stopping pipeline...")
		p.cancel()
	}
}

func (p *Pipeline[T]) run(parent context.Context) (out Outcome) {
	ctx, cancel := context.WithCancel(parent)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	defer cancel()

	p.state.Store(int32(StateRunning))
	start := time.Now()
	agg := NewProgressAggregator(p.config.ProgressInterval, p.listeners...)
	cursor := OpenCursor(p.source, p.config.Limit, WithFetchSize(p.config.FetchSize))

	defer func() {
		if r := recover(); r != nil {
			err := apperr.NewPanic(r)
			_ = cursor.Abort(ctx, err)
			out = p.complete(start, agg, err)
		}
	}()

	p.log.Info("Fetching products...",
		"limit", limitLabel(p.config.Limit),
		"batch_size", p.config.BatchSize,
		"fetch_size", p.config.FetchSize,
	)

	runErr := p.release(ctx, cursor, p.drive(ctx, cursor, agg))
	return p.complete(start, agg, runErr)
}

// release commits the source transaction only when every batch was
// acknowledged, and rolls it back with runErr otherwise.
func (p *Pipeline[T]) release(ctx context.Context, cursor *RowCursor, runErr error) error {
	if runErr == nil {
		return cursor.Close(ctx)
	}
	if err := cursor.Abort(ctx, runErr); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func (p *Pipeline[T]) drive(ctx context.Context, cursor *RowCursor, agg *ProgressAggregator) error {
	batcher := NewBatcher(MapRows(cursor, p.mapper), p.config.BatchSize)
	persister := NewPersister(p.sink)

	for {
		batch, err := batcher.Next(ctx)
		if errors.Is(err, io.EOF) {
			p.log.Info("Products fetched!", "rows", cursor.Fetched())
			return nil
		}
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return apperr.NewCancellation(err)
		}

		ack := persister.Persist(ctx, batch)
		if !ack.OK() {
			if ctx.Err() != nil {
				return apperr.NewCancellation(ack.Err)
			}
			return ack.Err
		}
		agg.OnBatchPersisted(ack.Size)
	}
}

func (p *Pipeline[T]) complete(start time.Time, agg *ProgressAggregator, err error) Outcome {
	out := Outcome{
		RunID:     p.runID,
		Status:    OutcomeSuccess,
		Persisted: agg.Count(),
		Batches:   agg.Batches(),
		Duration:  time.Since(start),
		Err:       err,
	}

	if err != nil {
		p.state.Store(int32(StateFailed))
		out.Status = OutcomeFailure
		p.log.Error("Error when fetching products",
			"error", err,
			"kind", apperr.Kind(err),
			"persisted", out.Persisted,
			"batches", out.Batches,
		)
	} else {
		p.state.Store(int32(StateSucceeded))
	}

	p.log.Info("Pipeline run completed",
		"status", out.Status.String(),
		"persisted", out.Persisted,
		"batches", out.Batches,
		"duration", out.Duration,
	)
	p.state.Store(int32(StateDone))
	return out
}

func limitLabel(limit *int) string {
	if limit == nil {
		return "all"
	}
	return strconv.Itoa(*limit)
}
