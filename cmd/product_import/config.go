package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/DjordjeVuckovic/product-stream/internal/apperr"
	"github.com/DjordjeVuckovic/product-stream/internal/config"
	"github.com/DjordjeVuckovic/product-stream/internal/server"
	"github.com/DjordjeVuckovic/product-stream/internal/storage/factory"
	"github.com/DjordjeVuckovic/product-stream/internal/storage/pg"
	"github.com/DjordjeVuckovic/product-stream/pkg/config/env"
	"github.com/DjordjeVuckovic/product-stream/pkg/logging"
)

func NewAppConfig() *AppConfig {
	return &AppConfig{
		ENV: os.Getenv("ENV"),
	}
}

type AppConfig struct {
	ENV string
}

type ImportConfig struct {
	Logging  logging.Config
	Pipeline config.Pipeline
	Source   pg.PoolConfig
	Status   *server.Config
	factory.StorageConfig
}

// cliFlags holds flag values. Zero values mean "not set".
type cliFlags struct {
	batchSize        int
	fetchSize        int
	progressInterval int64
	statusPort       string
}

func (as *AppConfig) Load(flags cliFlags) (*ImportConfig, error) {
	err := env.LoadDotEnv(as.ENV, "cmd/product_import/.env", "cmd/product_import/pg.env")
	if err != nil {
		slog.Info("Skipping .env environment variables...", "error", err)
	}

	pipelineCfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load pipeline configuration", "error", err)
		return nil, err
	}
	if flags.batchSize != 0 {
		pipelineCfg.BatchSize = flags.batchSize
	}
	if flags.fetchSize != 0 {
		pipelineCfg.FetchSize = flags.fetchSize
	}
	if flags.progressInterval != 0 {
		pipelineCfg.ProgressInterval = flags.progressInterval
	}
	if err := pipelineCfg.Validate(); err != nil {
		return nil, err
	}

	sourceConn := os.Getenv("PG_SOURCE_CONNECTION_STRING")
	if sourceConn == "" {
		slog.Error("PG_SOURCE_CONNECTION_STRING environment variable is not set")
		return nil, fmt.Errorf("PG_SOURCE_CONNECTION_STRING environment variable is not set")
	}

	storageCfg, err := factory.LoadEnv()
	if err != nil {
		slog.Error("Failed to load storage configuration from environment", "error", err)
		return nil, err
	}

	statusCfg, err := server.LoadConfig()
	if err != nil {
		return nil, err
	}
	if flags.statusPort != "" {
		if err := server.ValidatePort(flags.statusPort); err != nil {
			return nil, apperr.NewValidationWrap("invalid --status-port", err)
		}
		statusCfg.Port = flags.statusPort
	}

	return &ImportConfig{
		Logging:       logging.LoadEnv(),
		Pipeline:      *pipelineCfg,
		Source:        pg.PoolConfig{ConnStr: sourceConn},
		Status:        statusCfg,
		StorageConfig: *storageCfg,
	}, nil
}

// parseLimit reads the optional positional row limit.
func parseLimit(args []string) (*int, error) {
	if len(args) == 0 {
		return nil, nil
	}
	limit, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, apperr.NewValidationWrap(fmt.Sprintf("limit must be a number, got %q", args[0]), err)
	}
	if limit < 0 {
		return nil, apperr.NewValidation(fmt.Sprintf("limit must not be negative, got %d", limit))
	}
	return &limit, nil
}
