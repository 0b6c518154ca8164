package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"agent-optimus/config"
	"agent-optimus/services"
	"agent-optimus/storage"
	"agent-optimus/utils"
)

var importAgent string

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import a local property CSV for an agent",
	Long: `Streams a semicolon-delimited property export into the catalogue on behalf
of --agent, then prints the agent's portfolio insights.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importAgent, "agent", "", "agent user id that owns the imported listings")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if importAgent == "" {
		return errors.New("--agent is required")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	cfg := config.Load()
	logger := newLogger(cfg)
	ctx := cmd.Context()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	imp, release, err := newImporter(cfg, nil, store, logger)
	if err != nil {
		return err
	}
	defer release()

	summary, err := imp.ImportReader(ctx, f, importAgent)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	cmd.Printf("Imported %s: %d rows, %d committed in %d chunks, %d skipped, %d failed\n",
		args[0], summary.Rows, summary.Committed, summary.Chunks, summary.Skipped, summary.Failed)
	if summary.Rejects != "" {
		cmd.Printf("Rejected rows written to %s\n", summary.Rejects)
	}

	return printInsights(cmd, store, importAgent, logger)
}

func printInsights(cmd *cobra.Command, store storage.PropertyStore, agentID string, logger *utils.Logger) error {
	props, err := store.ListByAgent(cmd.Context(), agentID)
	if err != nil {
		return fmt.Errorf("load properties: %w", err)
	}
	svc := services.NewInsightService(logger)
	svc.Print(cmd.OutOrStdout(), svc.Generate(props))
	return nil
}
