package storage

import (
	"context"

	"github.com/DjordjeVuckovic/product-stream/internal/domain"
)

// Storer durably writes batches of products. SaveBulk is called
// sequentially; implementations report every failure as an error.
type Storer interface {
	SaveBulk(ctx context.Context, products []domain.Product) error
	Close() error
}

type Type string

const (
	ES      Type = "es"
	PG      Type = "pg"
	InMem   Type = "in_mem"
	JSONL   Type = "jsonl"
	Parquet Type = "parquet"
)

type StorerError string

const (
	ErrUnsupportedStorer StorerError = "unsupported storer type: %s"
)

func (e StorerError) Error() string {
	return string(e)
}
