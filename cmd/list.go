package cmd

import (
	"fmt"

	"github.com/tasksync/tasksync/internal/db"
	"github.com/tasksync/tasksync/internal/output"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all live tasks",
	GroupID: "core",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		database, err := db.Open(baseDir)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		tasks, err := database.ListAllTasks(cmd.Context())
		if err != nil {
			output.Error("failed to list tasks: %v", err)
			return err
		}

		jsonOut, _ := cmd.Flags().GetBool("json")
		if jsonOut {
			return output.JSON(tasks)
		}

		if len(tasks) == 0 {
			fmt.Println("No tasks")
			return nil
		}

		for _, t := range tasks {
			fmt.Println(output.FormatTaskLine(t))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Bool("json", false, "Output as JSON")
}
