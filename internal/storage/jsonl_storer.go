package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/DjordjeVuckovic/product-stream/internal/domain"
)

// JSONLStorer appends products as JSON lines. A batch is encoded in full
// before any of it reaches the destination, so a failed SaveBulk writes
// nothing. Every batch is synced when the destination is a file.
type JSONLStorer struct {
	out  io.Writer
	buf  bytes.Buffer
	enc  *json.Encoder
	file *os.File
}

func NewJSONLFileStorer(path string) (*JSONLStorer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	s := NewJSONLStorer(f)
	s.file = f
	return s, nil
}

func NewJSONLStorer(w io.Writer) *JSONLStorer {
	s := &JSONLStorer{out: w}
	s.enc = json.NewEncoder(&s.buf)
	return s
}

func (s *JSONLStorer) SaveBulk(ctx context.Context, products []domain.Product) error {
	s.buf.Reset()
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.enc.Encode(p); err != nil {
			return fmt.Errorf("failed to encode product %d: %w", p.ID, err)
		}
	}
	if _, err := s.buf.WriteTo(s.out); err != nil {
		return fmt.Errorf("failed to write products: %w", err)
	}
	if s.file != nil {
		if err := s.file.Sync(); err != nil {
			return fmt.Errorf("failed to sync products: %w", err)
		}
	}
	return nil
}

func (s *JSONLStorer) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
