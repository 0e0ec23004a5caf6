package cmd

import (
	"fmt"

	"github.com/tasksync/tasksync/internal/output"
	"github.com/tasksync/tasksync/internal/syncconfig"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Show effective sync configuration (batch size, API base URL, max retries)",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := syncconfig.Load()

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(cfg)
		}

		fmt.Printf("SYNC_BATCH_SIZE: %d\n", cfg.BatchSize)
		fmt.Printf("API_BASE_URL:    %s\n", cfg.APIBaseURL)
		fmt.Printf("MAX_RETRIES:     %d\n", cfg.MaxRetries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().Bool("json", false, "JSON output")
}
