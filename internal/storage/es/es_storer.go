package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/DjordjeVuckovic/product-stream/internal/domain"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
)

type Storer struct {
	client    *elasticsearch.TypedClient
	indexName string
	config    ClientConfig
}

// Document is the Elasticsearch representation of a product.
type Document struct {
	ID           int64     `json:"id"`
	Designation  string    `json:"designation"`
	Stock        int32     `json:"stock"`
	PictureURL   *string   `json:"picture_url,omitempty"`
	BlueprintURL *string   `json:"blueprint_url,omitempty"`
	Weight       float64   `json:"weight"`
	Volume       float64   `json:"volume"`
	Obsolete     bool      `json:"obsolete"`
	IndexedAt    time.Time `json:"indexed_at"`
}

func NewStorer(ctx context.Context, config ClientConfig) (*Storer, error) {
	client, err := newClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	storer := &Storer{
		client:    client,
		indexName: config.IndexName,
		config:    config,
	}

	if err := storer.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return storer, nil
}

// SaveBulk indexes one batch and waits until every item was acknowledged.
// Any rejected item fails the whole batch.
func (e *Storer) SaveBulk(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	flushInterval := e.config.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 30 * time.Second
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         e.indexName,
		Client:        e.client,
		NumWorkers:    1,
		FlushBytes:    5e+6, // 5MB
		FlushInterval: flushInterval,
		Refresh:       "wait_for",
	})
	if err != nil {
		return fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	var successful, failed atomic.Int64
	now := time.Now().UTC()

	for _, p := range products {
		docBytes, err := json.Marshal(toDocument(p, now))
		if err != nil {
			_ = bi.Close(ctx)
			return fmt.Errorf("failed to marshal product %d: %w", p.ID, err)
		}

		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: strconv.FormatInt(p.ID, 10),
			Body:       bytes.NewReader(docBytes),
			OnSuccess: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
				successful.Add(1)
			},
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				failed.Add(1)
				if err != nil {
					slog.Debug("bulk index error", "error", err, "id", item.DocumentID)
				} else {
					slog.Debug("bulk index error", "status", res.Status, "error", res.Error.Type, "reason", res.Error.Reason, "id", item.DocumentID)
				}
			},
		})
		if err != nil {
			_ = bi.Close(ctx)
			return fmt.Errorf("failed to add product %d to bulk indexer: %w", p.ID, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("failed to close bulk indexer: %w", err)
	}

	slog.Debug("Bulk indexing completed",
		"successful", successful.Load(),
		"failed", failed.Load(),
		"total", len(products),
		"index", e.indexName)

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("failed to index %d out of %d products", n, len(products))
	}
	return nil
}

func (e *Storer) Close() error {
	return nil
}

func toDocument(p domain.Product, indexedAt time.Time) Document {
	return Document{
		ID:           p.ID,
		Designation:  p.Designation,
		Stock:        p.Stock,
		PictureURL:   p.PictureURL,
		BlueprintURL: p.BlueprintURL,
		Weight:       p.Weight,
		Volume:       p.Volume,
		Obsolete:     p.Obsolete,
		IndexedAt:    indexedAt,
	}
}

func (e *Storer) EnsureIndex(ctx context.Context) error {
	exists, err := e.client.Indices.Exists(e.indexName).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	if exists {
		slog.Info("Index already exists", "index", e.indexName)
		return nil
	}

	designation := types.NewTextProperty()
	designation.Fields = map[string]types.Property{
		"keyword": types.NewKeywordProperty(),
	}

	mappings := types.TypeMapping{
		Properties: map[string]types.Property{
			"id":            types.NewLongNumberProperty(),
			"designation":   designation,
			"stock":         types.NewIntegerNumberProperty(),
			"picture_url":   types.NewKeywordProperty(),
			"blueprint_url": types.NewKeywordProperty(),
			"weight":        types.NewDoubleNumberProperty(),
			"volume":        types.NewDoubleNumberProperty(),
			"obsolete":      types.NewBooleanProperty(),
			"indexed_at":    types.NewDateProperty(),
		},
	}

	createRes, err := e.client.Indices.Create(e.indexName).
		Mappings(&mappings).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if !createRes.Acknowledged {
		return fmt.Errorf("index creation was not acknowledged")
	}

	slog.Info("Index created successfully", "index", e.indexName)
	return nil
}
