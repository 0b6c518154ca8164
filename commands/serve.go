package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"agent-optimus/api"
	"agent-optimus/config"
	"agent-optimus/services"
	"agent-optimus/storage"
	"agent-optimus/watcher"
)

var serveWithReactor bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP functions",
	Long: `Starts the HTTP server exposing uploadPropertyCSV, activateTrial and the
insights endpoint. Unless --reactor=false, the lead reactor runs in the same
process.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWithReactor, "reactor", true, "also run the lead intelligence reactor")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	bucket, err := storage.NewDiskBucket(cfg.BlobDir)
	if err != nil {
		return err
	}

	imp, release, err := newImporter(cfg, bucket, store, logger)
	if err != nil {
		return err
	}
	defer release()

	router := api.NewRouter(api.Deps{
		Uploader:    services.NewUploader(bucket, imp, logger),
		Trials:      services.NewTrialService(store, logger),
		Insights:    services.NewInsightService(logger),
		Properties:  store,
		Users:       store,
		DB:          store,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	if serveWithReactor {
		reactor := services.NewIntelReactor(store, logger)
		listener := watcher.NewLeadListener(cfg.DSN(), store, reactor, logger)
		go func() {
			if err := listener.Run(ctx); err != nil {
				logger.Error("Lead reactor stopped: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("=== agent-optimus listening on :%s (%s) ===", cfg.Port, cfg.Env)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
