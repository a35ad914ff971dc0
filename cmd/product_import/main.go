package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/DjordjeVuckovic/product-stream/internal/domain"
	"github.com/DjordjeVuckovic/product-stream/internal/ingest"
	"github.com/DjordjeVuckovic/product-stream/internal/reader"
	"github.com/DjordjeVuckovic/product-stream/internal/server"
	"github.com/DjordjeVuckovic/product-stream/internal/storage/factory"
	"github.com/DjordjeVuckovic/product-stream/internal/storage/pg"
	"github.com/DjordjeVuckovic/product-stream/pkg/logging"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var errImportFailed = errors.New("product import failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errImportFailed) {
			slog.Error("product-import", "error", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags cliFlags

	cmd := &cobra.Command{
		Use:   "product-import [limit]",
		Short: "Stream products from PostgreSQL into the configured sink",
		Long: `Reads the products table through a server-side cursor, maps every row to a
product and persists the products in ordered batches, one batch at a time.

The optional limit caps the number of rows read. The process exits with 0
when every product was persisted and 1 otherwise.`,
		Example: `  # Import every product
  product-import

  # Import the first 1200 products in batches of 250
  product-import 1200 --batch-size 250`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := parseLimit(args)
			if err != nil {
				return err
			}

			cfg, err := NewAppConfig().Load(flags)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out, err := runImport(ctx, cfg, limit)
			if err != nil {
				return err
			}
			if !out.Succeeded() {
				return errImportFailed
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&flags.batchSize, "batch-size", 0, "products per persisted batch (default 500)")
	cmd.Flags().IntVar(&flags.fetchSize, "fetch-size", 0, "rows per cursor round-trip (default 500)")
	cmd.Flags().Int64Var(&flags.progressInterval, "progress-interval", 0, "log progress every N persisted products (default 10000)")
	cmd.Flags().StringVar(&flags.statusPort, "status-port", "", "serve /health and /progress on this port")

	return cmd
}

func runImport(ctx context.Context, cfg *ImportConfig, limit *int) (ingest.Outcome, error) {
	runID := uuid.New()
	log := logging.Setup(cfg.Logging).With("run_id", runID.String())

	pool, err := pg.NewConnectionPool(ctx, cfg.Source)
	if err != nil {
		log.Error("Failed to connect to the product source", "error", err)
		return ingest.Outcome{}, fmt.Errorf("connect source: %w", err)
	}
	defer pool.Close()

	log.Info("Creating pipeline", "storageType", cfg.StorageConfig.Type)
	storer, err := factory.NewStorer(ctx, cfg.StorageConfig)
	if err != nil {
		log.Error("Failed to create storer", "error", err)
		return ingest.Outcome{}, err
	}
	defer func() {
		if err := storer.Close(); err != nil {
			log.Warn("Failed to close storer", "error", err)
		}
	}()

	board := ingest.NewStatusBoard(runID, nil)
	pipeline := ingest.NewPipeline[domain.Product](
		pg.NewProductSource(pool),
		reader.NewProductMapper(),
		storer,
		ingest.WithRunID(runID),
		ingest.WithLimit(limit),
		ingest.WithBulk(cfg.Pipeline.BatchSize),
		ingest.WithCursorFetchSize(cfg.Pipeline.FetchSize),
		ingest.WithProgressInterval(cfg.Pipeline.ProgressInterval),
		ingest.WithListener(board),
	)
	board.Track(pipeline)

	g, gCtx := errgroup.WithContext(ctx)
	serverCtx, stopServer := context.WithCancel(gCtx)
	defer stopServer()

	var out ingest.Outcome
	g.Go(func() error {
		defer stopServer()
		out = pipeline.Run(ctx)
		return nil
	})

	if cfg.Status.Enabled() {
		srv := server.New(cfg.Status, pg.NewHealthChecker(pool), log).
			SetupMiddlewares().
			SetupErrorHandler().
			SetupHealthChecks("/health").
			SetupProgress("/progress", board)
		g.Go(func() error {
			return srv.Run(serverCtx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Warn("Status server stopped with error", "error", err)
	}
	return out, nil
}
