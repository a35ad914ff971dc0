package ingest

import (
	"context"

	"github.com/DjordjeVuckovic/product-stream/internal/reader"
)

// QuerySource starts a paged read of the source rows. Begin opens the owning
// transaction; limit, when set, must be applied by the query itself.
type QuerySource interface {
	Begin(ctx context.Context, limit *int) (Pager, error)
}

// Pager fetches rows in bounded pages inside one transaction. A page shorter
// than the requested size, or an empty page, means the result set is drained.
// The transaction is released by exactly one call to Commit or Rollback.
type Pager interface {
	FetchPage(ctx context.Context, size int) ([]reader.RawRow, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Sequence is a lazy, single-pass, pull-driven stream of values.
// Next advances to the next value and reports false once the stream ended;
// Err then tells whether it ended with a failure.
type Sequence[T any] interface {
	Next(ctx context.Context) bool
	Value() T
	Err() error
}

// BatchSink durably writes one batch. It is called sequentially, never
// concurrently, and reports failures as errors.
type BatchSink[T any] interface {
	SaveBulk(ctx context.Context, items []T) error
}
