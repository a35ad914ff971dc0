package ingest

import (
	"context"
	"errors"

	"github.com/DjordjeVuckovic/product-stream/internal/apperr"
	"github.com/DjordjeVuckovic/product-stream/internal/reader"
)

// mappedSequence applies a mapper to every row of the underlying sequence.
// A mapping failure ends the sequence; the row is neither skipped nor retried.
type mappedSequence[T any] struct {
	rows   Sequence[reader.RawRow]
	mapper reader.Mapper[T]

	value T
	pos   int64
	err   error
}

func MapRows[T any](rows Sequence[reader.RawRow], mapper reader.Mapper[T]) Sequence[T] {
	return &mappedSequence[T]{rows: rows, mapper: mapper}
}

func (m *mappedSequence[T]) Next(ctx context.Context) bool {
	if m.err != nil || !m.rows.Next(ctx) {
		return false
	}

	v, err := m.mapper.Map(m.rows.Value())
	if err != nil {
		var me *apperr.MalformedRowError
		if errors.As(err, &me) {
			me.Position = m.pos
		} else {
			err = apperr.NewMalformedRow(m.pos, "", err)
		}
		m.err = err
		var zero T
		m.value = zero
		return false
	}

	m.value = v
	m.pos++
	return true
}

func (m *mappedSequence[T]) Value() T {
	return m.value
}

func (m *mappedSequence[T]) Err() error {
	if m.err != nil {
		return m.err
	}
	return m.rows.Err()
}
