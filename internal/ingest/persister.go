package ingest

import (
	"context"

	"github.com/DjordjeVuckovic/product-stream/internal/apperr"
)

// Ack is the result of persisting one batch. Err is nil on success, an
// *apperr.WriteError otherwise.
type Ack struct {
	Batch int
	Size  int
	Err   error
}

func (a Ack) OK() bool {
	return a.Err == nil
}

// Persister writes batches to a sink one at a time. Persist blocks until the
// sink answered, so the caller cannot have two writes in flight.
type Persister[T any] struct {
	sink BatchSink[T]
	seq  int
}

func NewPersister[T any](sink BatchSink[T]) *Persister[T] {
	return &Persister[T]{sink: sink}
}

func (p *Persister[T]) Persist(ctx context.Context, batch []T) Ack {
	p.seq++
	ack := Ack{Batch: p.seq, Size: len(batch)}
	if err := p.sink.SaveBulk(ctx, batch); err != nil {
		ack.Err = apperr.NewWrite(p.seq, len(batch), err)
	}
	return ack
}
