package cmd

import (
	"fmt"

	"github.com/tasksync/tasksync/internal/db"
	"github.com/tasksync/tasksync/internal/models"
	"github.com/tasksync/tasksync/internal/output"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:     "update [task-id...]",
	Short:   "Update one or more fields on existing tasks",
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

		var patch models.TaskPatch
		if title, _ := cmd.Flags().GetString("title"); cmd.Flags().Changed("title") {
			patch.Title = &title
		}
		if desc, _ := cmd.Flags().GetString("description"); cmd.Flags().Changed("description") {
			patch.Description = &desc
		}
		if completed, _ := cmd.Flags().GetBool("completed"); cmd.Flags().Changed("completed") {
			patch.Completed = &completed
		}

		for _, taskID := range args {
			updated, err := database.UpdateTask(cmd.Context(), taskID, patch)
			if err != nil {
				output.Error("failed to update %s: %v", taskID, err)
				continue
			}
			if updated == nil {
				output.Error("task not found: %s", taskID)
				continue
			}
			fmt.Printf("UPDATED %s\n", taskID)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().String("title", "", "New title")
	updateCmd.Flags().StringP("description", "d", "", "New description")
	updateCmd.Flags().Bool("completed", false, "Mark task completed")
}
