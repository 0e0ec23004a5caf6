package cmd

import (
	"fmt"

	"github.com/tasksync/tasksync/internal/db"
	"github.com/tasksync/tasksync/internal/output"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:     "show <task-id>",
	Aliases: []string{"view", "get"},
	Short:   "Display full details of a task",
	GroupID: "core",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		database, err := db.Open(baseDir)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		if err := ValidateTaskID(args[0], "show <task-id>"); err != nil {
			output.Error("%v", err)
			return err
		}

		task, err := database.GetTask(cmd.Context(), args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if task == nil {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				output.JSONError(output.ErrCodeNotFound, fmt.Sprintf("task not found: %s", args[0]))
			} else {
				output.Error("task not found: %s", args[0])
			}
			return fmt.Errorf("task not found: %s", args[0])
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(task)
		}

		fmt.Print(output.FormatTaskLong(task))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().Bool("json", false, "Machine-readable JSON")
}
