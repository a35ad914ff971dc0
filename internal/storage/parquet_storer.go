package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/DjordjeVuckovic/product-stream/internal/domain"
	"github.com/parquet-go/parquet-go"
)

type parquetProduct struct {
	ID           int64   `parquet:"id"`
	Designation  string  `parquet:"designation"`
	Stock        int32   `parquet:"stock"`
	PictureURL   *string `parquet:"picture_url,optional"`
	BlueprintURL *string `parquet:"blueprint_url,optional"`
	Weight       float64 `parquet:"weight"`
	Volume       float64 `parquet:"volume"`
	Obsolete     bool    `parquet:"obsolete"`
}

// ParquetStorer writes every batch as one row group. The file footer is
// written by Close, so the output is readable only after a clean close.
type ParquetStorer struct {
	writer *parquet.GenericWriter[parquetProduct]
	file   *os.File
	rows   []parquetProduct
}

func NewParquetFileStorer(path string) (*ParquetStorer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	s := NewParquetStorer(f)
	s.file = f
	return s, nil
}

func NewParquetStorer(w io.Writer) *ParquetStorer {
	return &ParquetStorer{
		writer: parquet.NewGenericWriter[parquetProduct](w, parquet.Compression(&parquet.Snappy)),
	}
}

func (s *ParquetStorer) SaveBulk(ctx context.Context, products []domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}

	s.rows = s.rows[:0]
	for _, p := range products {
		s.rows = append(s.rows, parquetProduct(p))
	}

	if _, err := s.writer.Write(s.rows); err != nil {
		return fmt.Errorf("failed to write %d products: %w", len(products), err)
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush row group: %w", err)
	}
	return nil
}

func (s *ParquetStorer) Close() error {
	if err := s.writer.Close(); err != nil {
		if s.file != nil {
			_ = s.file.Close()
		}
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	if s.file != nil {
		if err := s.file.Sync(); err != nil {
			_ = s.file.Close()
			return err
		}
		return s.file.Close()
	}
	return nil
}
