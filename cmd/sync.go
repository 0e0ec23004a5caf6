package cmd

import (
	"fmt"

	"github.com/tasksync/tasksync/internal/db"
	"github.com/tasksync/tasksync/internal/output"
	"github.com/tasksync/tasksync/internal/sync"
	"github.com/tasksync/tasksync/internal/syncclient"
	"github.com/tasksync/tasksync/internal/syncconfig"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Run one sync cycle: drain the queue, batch, and transmit",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()
		ctx := cmd.Context()

		database, err := db.Open(baseDir)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		cfg := syncconfig.Load()
		transport := syncclient.New(cfg.APIBaseURL)
		engine := sync.NewEngine(database, transport, cfg.BatchSize, cfg.MaxRetries)

		result, err := engine.RunCycle(ctx)
		if err != nil {
			output.Error("sync cycle failed: %v", err)
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(result)
		}

		if result.Success {
			output.Success("synced %d item(s)", result.SyncedItems)
		} else {
			output.Warning("synced %d item(s), %d failed", result.SyncedItems, result.FailedItems)
			for _, e := range result.Errors {
				fmt.Printf("  %s: %s\n", e.TaskID, e.Message)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Bool("json", false, "JSON output")
}
