package pg

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/DjordjeVuckovic/product-stream/internal/domain"
	"github.com/DjordjeVuckovic/product-stream/internal/ingest"
	"github.com/DjordjeVuckovic/product-stream/internal/reader"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultSourceTable = "products"
	cursorName         = "product_stream_cursor"
)

// ProductSource reads products through a server-side cursor. Each Begin
// opens a read-only transaction that owns the cursor.
type ProductSource struct {
	db    *pgxpool.Pool
	table string
}

type ProductSourceOption func(*ProductSource)

func WithSourceTable(table string) ProductSourceOption {
	return func(s *ProductSource) {
		if table != "" {
			s.table = table
		}
	}
}

func NewProductSource(pool *ConnectionPool, opts ...ProductSourceOption) *ProductSource {
	s := &ProductSource{db: pool.conn, table: defaultSourceTable}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ProductSource) Begin(ctx context.Context, limit *int) (ingest.Pager, error) {
	if limit != nil && *limit < 0 {
		return nil, fmt.Errorf("invalid limit %d", *limit)
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := s.selectSQL(limit)
	slog.Debug("Declaring product cursor", "query", query)

	if _, err := tx.Exec(ctx, "DECLARE "+cursorName+" NO SCROLL CURSOR FOR "+query); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to declare cursor: %w", err)
	}

	return &txPager{tx: tx}, nil
}

// selectSQL renders the product query. The limit is an integer, so it is
// inlined; DECLARE does not take bind parameters.
func (s *ProductSource) selectSQL(limit *int) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(domain.ProductColumns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(pgx.Identifier{s.table}.Sanitize())
	b.WriteString(" ORDER BY id")
	if limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(*limit))
	}
	return b.String()
}

type txPager struct {
	tx pgx.Tx
}

func (p *txPager) FetchPage(ctx context.Context, size int) ([]reader.RawRow, error) {
	rows, err := p.tx.Query(ctx, "FETCH FORWARD "+strconv.Itoa(size)+" FROM "+cursorName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rows: %w", err)
	}

	page, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (reader.RawRow, error) {
		values, err := row.Values()
		return reader.RawRow(values), err
	})
	if err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return page, nil
}

func (p *txPager) Commit(ctx context.Context) error {
	return p.tx.Commit(ctx)
}

func (p *txPager) Rollback(ctx context.Context) error {
	return p.tx.Rollback(ctx)
}
