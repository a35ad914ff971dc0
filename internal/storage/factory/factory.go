package factory

import (
	"context"
	"fmt"

	"github.com/DjordjeVuckovic/product-stream/internal/storage"
	"github.com/DjordjeVuckovic/product-stream/internal/storage/es"
	"github.com/DjordjeVuckovic/product-stream/internal/storage/in_mem"
	"github.com/DjordjeVuckovic/product-stream/internal/storage/pg"
)

// NewStorer creates the batch sink selected by cfg.Type.
func NewStorer(ctx context.Context, cfg StorageConfig) (storage.Storer, error) {
	switch cfg.Type {
	case storage.PG:
		if cfg.Pg == nil {
			return nil, fmt.Errorf("missing PostgreSQL configuration")
		}
		pool, err := pg.NewConnectionPool(ctx, *cfg.Pg)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL connection pool: %w", err)
		}
		return pg.NewStorer(pool, pg.WithTargetTable(cfg.PgTable))

	case storage.ES:
		if cfg.Es == nil {
			return nil, fmt.Errorf("missing Elasticsearch configuration")
		}
		return es.NewStorer(ctx, *cfg.Es)

	case storage.InMem:
		return in_mem.NewInMemStorer(), nil

	case storage.JSONL:
		return storage.NewJSONLFileStorer(cfg.JSONLPath)

	case storage.Parquet:
		return storage.NewParquetFileStorer(cfg.ParquetPath)

	default:
		return nil, fmt.Errorf(string(storage.ErrUnsupportedStorer), cfg.Type)
	}
}
