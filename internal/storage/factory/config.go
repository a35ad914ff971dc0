package factory

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/DjordjeVuckovic/product-stream/internal/storage"
	"github.com/DjordjeVuckovic/product-stream/internal/storage/es"
	"github.com/DjordjeVuckovic/product-stream/internal/storage/pg"
	"github.com/DjordjeVuckovic/product-stream/pkg/stringsutil"
)

type StorageConfig struct {
	storage.Type
	Pg          *pg.PoolConfig
	PgTable     string
	Es          *es.ClientConfig
	JSONLPath   string
	ParquetPath string
}

// LoadEnv reads the sink configuration from the environment.
func LoadEnv() (*StorageConfig, error) {
	storageType := (storage.Type)(os.Getenv("SINK_TYPE"))
	if storageType == "" {
		slog.Error("SINK_TYPE environment variable is not set")
		return nil, fmt.Errorf("SINK_TYPE environment variable is not set")
	}

	supported := []storage.Type{storage.ES, storage.PG, storage.InMem, storage.JSONL, storage.Parquet}
	if !isSupported(storageType, supported) {
		slog.Error("Invalid SINK_TYPE environment variable value", "value", storageType)
		return nil, fmt.Errorf(
			"invalid SINK_TYPE environment variable value: %s, expected one of %v",
			storageType,
			supported)
	}

	cfg := &StorageConfig{Type: storageType}

	switch storageType {
	case storage.ES:
		addresses := os.Getenv("ES_ADDRESSES")
		cfg.Es = &es.ClientConfig{
			Addresses: stringsutil.SplitNonEmpty(addresses, ","),
			IndexName: os.Getenv("ES_INDEX_NAME"),
			Username:  os.Getenv("ES_USERNAME"),
			Password:  os.Getenv("ES_PASSWORD"),
		}
		if len(cfg.Es.Addresses) == 0 || cfg.Es.IndexName == "" {
			slog.Error("Elasticsearch configuration is incomplete", "addresses", addresses, "indexName", cfg.Es.IndexName)
			return nil, fmt.Errorf("elasticsearch configuration is incomplete: addresses or index name is missing")
		}
	case storage.PG:
		cfg.Pg = &pg.PoolConfig{
			ConnStr: os.Getenv("PG_CONNECTION_STRING"),
		}
		cfg.PgTable = os.Getenv("PG_TARGET_TABLE")
		if cfg.Pg.ConnStr == "" {
			slog.Error("PostgreSQL connection string is not set")
			return nil, fmt.Errorf("PostgreSQL connection string is not set")
		}
	case storage.JSONL:
		cfg.JSONLPath = os.Getenv("JSONL_PATH")
		if cfg.JSONLPath == "" {
			slog.Error("JSONL_PATH environment variable is not set")
			return nil, fmt.Errorf("JSONL_PATH environment variable is not set")
		}
	case storage.Parquet:
		cfg.ParquetPath = os.Getenv("PARQUET_PATH")
		if cfg.ParquetPath == "" {
			slog.Error("PARQUET_PATH environment variable is not set")
			return nil, fmt.Errorf("PARQUET_PATH environment variable is not set")
		}
	}

	return cfg, nil
}

func isSupported(t storage.Type, supported []storage.Type) bool {
	for _, s := range supported {
		if s == t {
			return true
		}
	}
	return false
}
