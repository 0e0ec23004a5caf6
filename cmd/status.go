package cmd

import (
	"fmt"

	"github.com/tasksync/tasksync/internal/db"
	"github.com/tasksync/tasksync/internal/output"
	"github.com/tasksync/tasksync/internal/syncclient"
	"github.com/tasksync/tasksync/internal/syncconfig"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"current"},
	Short:   "Show pending sync count, last sync time, dead-letter count, and connectivity",
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

		pending, err := database.CountPending(ctx)
		if err != nil {
			output.Error("failed to count pending items: %v", err)
			return err
		}

		lastSynced, err := database.LastSyncedAt(ctx)
		if err != nil {
			output.Error("failed to read last synced time: %v", err)
			return err
		}

		deadLetters, err := database.DeadLetterContents(ctx)
		if err != nil {
			output.Error("failed to read dead-letter contents: %v", err)
			return err
		}

		cfg := syncconfig.Load()
		connected := syncclient.New(cfg.APIBaseURL).CheckConnectivity(ctx)

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			result := map[string]any{
				"count_pending":       pending,
				"last_synced_at":      lastSynced,
				"dead_letter_count":   len(deadLetters),
				"check_connectivity":  connected,
			}
			return output.JSON(result)
		}

		fmt.Printf("Pending sync items: %d\n", pending)
		if lastSynced != nil {
			fmt.Printf("Last synced at:      %s\n", *lastSynced)
		} else {
			fmt.Println("Last synced at:      never")
		}
		fmt.Printf("Dead-lettered items: %d\n", len(deadLetters))
		if connected {
			fmt.Println("Connectivity:        reachable")
		} else {
			fmt.Println("Connectivity:        unreachable")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("json", false, "JSON output")
}
