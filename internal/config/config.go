package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/DjordjeVuckovic/product-stream/internal/apperr"
	"github.com/DjordjeVuckovic/product-stream/internal/ingest"
	"gopkg.in/yaml.v3"
)

// Pipeline holds the tunables of an import run.
type Pipeline struct {
	BatchSize        int   `yaml:"batch_size"`
	FetchSize        int   `yaml:"fetch_size"`
	ProgressInterval int64 `yaml:"progress_interval"`
}

func Default() Pipeline {
	return Pipeline{
		BatchSize:        ingest.DefaultBatchSize,
		FetchSize:        ingest.DefaultFetchSize,
		ProgressInterval: ingest.DefaultProgressInterval,
	}
}

func (p Pipeline) Validate() error {
	if p.BatchSize <= 0 {
		return apperr.NewValidation(fmt.Sprintf("batch_size must be positive, got %d", p.BatchSize))
	}
	if p.FetchSize <= 0 {
		return apperr.NewValidation(fmt.Sprintf("fetch_size must be positive, got %d", p.FetchSize))
	}
	if p.ProgressInterval <= 0 {
		return apperr.NewValidation(fmt.Sprintf("progress_interval must be positive, got %d", p.ProgressInterval))
	}
	return nil
}

type YAMLLoader struct {
	reader io.Reader
}

func NewYAMLLoader(reader io.Reader) *YAMLLoader {
	return &YAMLLoader{
		reader: reader,
	}
}

// Load decodes a pipeline file on top of the defaults. Keys missing from the
// file keep their default value.
func (l *YAMLLoader) Load(validate bool) (*Pipeline, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(l.reader)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperr.NewValidationWrap("invalid pipeline config", err)
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// ApplyEnv overrides fields with BATCH_SIZE, FETCH_SIZE and
// PROGRESS_INTERVAL when they are set.
func (p *Pipeline) ApplyEnv() error {
	if v := os.Getenv("BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperr.NewValidationWrap("invalid BATCH_SIZE", err)
		}
		p.BatchSize = n
	}
	if v := os.Getenv("FETCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperr.NewValidationWrap("invalid FETCH_SIZE", err)
		}
		p.FetchSize = n
	}
	if v := os.Getenv("PROGRESS_INTERVAL"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return apperr.NewValidationWrap("invalid PROGRESS_INTERVAL", err)
		}
		p.ProgressInterval = n
	}
	return nil
}

// Load builds the pipeline config from defaults, the optional file named by
// PIPELINE_CONFIG_PATH and environment overrides, in that order.
func Load() (*Pipeline, error) {
	cfg := Default()

	if path := os.Getenv("PIPELINE_CONFIG_PATH"); path != "" {
		file, err := os.Open(path)
		if err != nil {
			slog.Error("Failed to open pipeline config", "path", path, "error", err)
			return nil, fmt.Errorf("open pipeline config: %w", err)
		}
		defer file.Close()

		loaded, err := NewYAMLLoader(file).Load(false)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
		slog.Debug("Loaded pipeline config", "path", path)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
