package pg

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DjordjeVuckovic/product-stream/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultTargetTable = "products"
	stageTable         = "product_import_stage"
)

// Storer upserts product batches. Each batch is copied into a temporary
// stage table and merged into the target in one transaction, so a batch is
// either fully written or not at all.
type Storer struct {
	db    *pgxpool.Pool
	pool  *ConnectionPool
	table string
}

type StorerOption func(*Storer)

func WithTargetTable(table string) StorerOption {
	return func(s *Storer) {
		if table != "" {
			s.table = table
		}
	}
}

func NewStorer(pool *ConnectionPool, opts ...StorerOption) (*Storer, error) {
	s := &Storer{db: pool.conn, pool: pool, table: defaultTargetTable}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Storer) SaveBulk(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	target := pgx.Identifier{s.table}.Sanitize()
	if _, err := tx.Exec(ctx, fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP", stageTable, target,
	)); err != nil {
		return fmt.Errorf("failed to create stage table: %w", err)
	}

	copied, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{stageTable},
		domain.ProductColumns,
		pgx.CopyFromSlice(len(products), func(i int) ([]any, error) {
			p := products[i]
			return []any{
				p.ID,
				p.Designation,
				p.Stock,
				p.PictureURL,
				p.BlueprintURL,
				p.Weight,
				p.Volume,
				p.Obsolete,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk copy products: %w", err)
	}

	if _, err := tx.Exec(ctx, upsertSQL(target)); err != nil {
		return fmt.Errorf("failed to merge products: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit products: %w", err)
	}

	slog.Debug("Bulk products saved", "count", copied, "table", s.table)
	return nil
}

func (s *Storer) Close() error {
	s.pool.Close()
	return nil
}

func upsertSQL(target string) string {
	cols := strings.Join(domain.ProductColumns, ", ")

	updates := make([]string, 0, len(domain.ProductColumns)-1)
	for _, c := range domain.ProductColumns[1:] {
		updates = append(updates, c+" = EXCLUDED."+c)
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (id) DO UPDATE SET %s",
		target, cols, cols, stageTable, strings.Join(updates, ", "),
	)
}
