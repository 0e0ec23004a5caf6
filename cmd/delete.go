package cmd

import (
	"fmt"

	"github.com/tasksync/tasksync/internal/db"
	"github.com/tasksync/tasksync/internal/output"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete [task-id...]",
	Aliases: []string{"rm"},
	Short:   "Soft-delete one or more tasks",
	GroupID: "core",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		database, err := db.Open(baseDir)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		for _, taskID := range args {
			deleted, err := database.DeleteTask(cmd.Context(), taskID)
			if err != nil {
				output.Error("failed to delete %s: %v", taskID, err)
				continue
			}
			if !deleted {
				output.Error("task not found or already deleted: %s", taskID)
				continue
			}
			fmt.Printf("DELETED %s\n", taskID)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolP("force", "f", false, "No-op (delete always succeeds)")
}
