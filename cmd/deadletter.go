package cmd

import (
	"fmt"

	"github.com/tasksync/tasksync/internal/db"
	"github.com/tasksync/tasksync/internal/output"
	"github.com/spf13/cobra"
)

var deadLetterCmd = &cobra.Command{
	Use:     "dead-letter",
	Aliases: []string{"deadletter", "quarantine"},
	Short:   "View sync intents that exhausted their retries",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		database, err := db.Open(baseDir)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		items, err := database.DeadLetterContents(cmd.Context())
		if err != nil {
			output.Error("failed to read dead-letter contents: %v", err)
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(items)
		}

		if len(items) == 0 {
			fmt.Println("Dead-letter queue is empty")
			return nil
		}

		fmt.Printf("Dead-lettered items (%d):\n\n", len(items))
		for _, item := range items {
			fmt.Printf("%s  task=%s op=%s retries=%d\n", output.FormatTimeAgo(item.FailedAt), item.TaskID, item.Operation, item.RetryCount)
			fmt.Printf("  %s\n\n", item.FinalErrorMessage)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(deadLetterCmd)
	deadLetterCmd.Flags().Bool("json", false, "Output as JSON")
}
