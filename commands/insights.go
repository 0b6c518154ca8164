package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"agent-optimus/config"
)

var insightsAgent string

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Print portfolio insights for an agent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if insightsAgent == "" {
			return errors.New("--agent is required")
		}
		cfg := config.Load()
		logger := newLogger(cfg)
		store, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		return printInsights(cmd, store, insightsAgent, logger)
	},
}

func init() {
	insightsCmd.Flags().StringVar(&insightsAgent, "agent", "", "agent user id")
	rootCmd.AddCommand(insightsCmd)
}
