package ingest

import (
	"context"
	"io"
)

const DefaultBatchSize = 500

// Batcher groups a sequence into ordered batches of at most size items.
// Every batch but the last holds exactly size items. When the source fails,
// the partially filled batch is dropped and the failure is returned instead.
type Batcher[T any] struct {
	src  Sequence[T]
	size int
	done bool
}

func NewBatcher[T any](src Sequence[T], size int) *Batcher[T] {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Batcher[T]{src: src, size: size}
}

// Next pulls items from the source until a batch is full or the source ends.
// It returns io.EOF once the source is exhausted and every item was handed
// out. Returned batches are never reused by the Batcher.
func (b *Batcher[T]) Next(ctx context.Context) ([]T, error) {
	if b.done {
		return nil, io.EOF
	}

	buf := make([]T, 0, b.size)
	for len(buf) < b.size {
		if !b.src.Next(ctx) {
			b.done = true
			if err := b.src.Err(); err != nil {
				return nil, err
			}
			if len(buf) == 0 {
				return nil, io.EOF
			}
			return buf, nil
		}
		buf = append(buf, b.src.Value())
	}
	return buf, nil
}
