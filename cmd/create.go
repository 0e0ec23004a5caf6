package cmd

import (
	"fmt"

	"github.com/tasksync/tasksync/internal/db"
	"github.com/tasksync/tasksync/internal/output"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:     "create [title]",
	Aliases: []string{"add", "new"},
	Short:   "Create a new task",
	GroupID: "core",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		database, err := db.Open(baseDir)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		title, _ := cmd.Flags().GetString("title")
		if len(args) > 0 {
			title = args[0]
		}
		if title == "" {
			output.Error("title is required")
			return fmt.Errorf("title is required")
		}

		description, _ := cmd.Flags().GetString("description")

		task, err := database.CreateTask(cmd.Context(), title, description)
		if err != nil {
			output.Error("failed to create task: %v", err)
			return err
		}

		fmt.Printf("CREATED %s\n", task.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().String("title", "", "Task title")
	createCmd.Flags().StringP("description", "d", "", "Task description")
}
