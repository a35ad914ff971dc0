package in_mem

import (
	"context"
	"log/slog"
	"sync"

	"github.com/DjordjeVuckovic/product-stream/internal/domain"
)

// InMemStorer keeps products in memory, keyed by ID, in first-write order.
// Useful for dry runs and tests.
type InMemStorer struct {
	storageLock sync.RWMutex
	storage     map[int64]domain.Product
	order       []int64
	batches     int
}

func NewInMemStorer() *InMemStorer {
	return &InMemStorer{
		storage: make(map[int64]domain.Product),
	}
}

func (s *InMemStorer) SaveBulk(ctx context.Context, products []domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.storageLock.Lock()
	defer s.storageLock.Unlock()

	for _, p := range products {
		if _, ok := s.storage[p.ID]; !ok {
			s.order = append(s.order, p.ID)
		}
		s.storage[p.ID] = p
	}
	s.batches++

	slog.Debug("Saved products to in-memory storage", "count", len(products), "total", len(s.storage))
	return nil
}

func (s *InMemStorer) Products() []domain.Product {
	s.storageLock.RLock()
	defer s.storageLock.RUnlock()

	out := make([]domain.Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.storage[id])
	}
	return out
}

func (s *InMemStorer) Batches() int {
	s.storageLock.RLock()
	defer s.storageLock.RUnlock()
	return s.batches
}

func (s *InMemStorer) Close() error {
	return nil
}
