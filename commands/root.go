// Package commands is the agent-optimus command line.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"agent-optimus/config"
	"agent-optimus/enrich"
	"agent-optimus/services"
	"agent-optimus/storage"
	"agent-optimus/utils"
)

var rootCmd = &cobra.Command{
	Use:   "agent-optimus",
	Short: "Property ingestion and lead intelligence for estate agents",
	Long: `agent-optimus imports property CSV exports into the listings catalogue,
serves the upload and admin functions over HTTP, and tags leads from their
conversations with the assistant.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *utils.Logger {
	if cfg.IsDevelopment() {
		return utils.NewLogger()
	}
	return utils.NewJSONLogger(os.Stdout, zerolog.InfoLevel)
}

func openStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*storage.PostgresStore, error) {
	store, err := storage.NewPostgresStore(ctx, cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		return nil, err
	}
	return store, nil
}

// newImporter wires the import pipeline. The returned func releases the
// browser when enrichment is on.
func newImporter(cfg *config.Config, bucket storage.Bucket, store storage.PropertyStore, logger *utils.Logger) (*services.Importer, func(), error) {
	imp := services.NewImporter(bucket, store, services.ImporterConfig{
		BatchSize:  cfg.ImportBatchSize,
		Source:     cfg.ImportSource,
		Editor:     cfg.ImportEditor,
		RejectsDir: cfg.RejectsDir,
	}, logger)

	if !cfg.EnrichListings {
		return imp, func() {}, nil
	}

	fetcher, err := enrich.NewChromeFetcher(cfg.ChromeBin)
	if err != nil {
		return nil, nil, fmt.Errorf("listing enrichment: %w", err)
	}
	imp.WithEnricher(enrich.NewListingEnricher(fetcher, enrich.Options{
		MaxConcurrency: cfg.MaxConcurrency,
		RateLimit:      cfg.RateLimit(),
		MaxRetries:     cfg.MaxRetries,
	}, logger))
	logger.Info("Listing enrichment enabled (concurrency %d, %v between pages)", cfg.MaxConcurrency, cfg.RateLimit())
	return imp, fetcher.Close, nil
}
