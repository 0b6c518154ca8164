package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"agent-optimus/config"
	"agent-optimus/services"
	"agent-optimus/watcher"
)

var reactorCmd = &cobra.Command{
	Use:   "reactor",
	Short: "Tag leads from their conversations",
	Long: `Listens for lead changes in PostgreSQL and adds intelligence tags
(cash-buyer, bond-applicant, hot-lead) when a conversation grows.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := config.Load()
		logger := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		reactor := services.NewIntelReactor(store, logger)
		return watcher.NewLeadListener(cfg.DSN(), store, reactor, logger).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(reactorCmd)
}
