// Package cmd implements all tasksync CLI commands using cobra.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	baseDir         string
	baseDirOverride *string // For testing
	workDirFlag     string  // --work-dir flag value
)

// SetVersion sets the version string and enables --version flag
func SetVersion(v string) {
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "tasksync",
	Short: "Offline-first task tracker with durable background sync",
	Long: `tasksync - a local task manager that queues every change as a durable
sync intent and transmits it to a remote server in bounded, checksummed
batches, with retry-bounded dead-lettering and last-writer-wins conflict
resolution.`,
	SilenceErrors: true,
}

// initLogFile redirects slog to a file if TASKSYNC_LOG_FILE is set.
func initLogFile() *os.File {
	path := os.Getenv("TASKSYNC_LOG_FILE")
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return f
}

// Execute runs the root command
func Execute() {
	if f := initLogFile(); f != nil {
		defer f.Close()
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initBaseDir)

	rootCmd.PersistentFlags().StringVar(&workDirFlag, "work-dir", "", "path to project directory containing .tasksync (or the .tasksync dir itself)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")
}

func initBaseDir() {
	var err error

	if workDirFlag != "" {
		baseDir = workDirFlag

		if filepath.Base(baseDir) == ".tasksync" {
			baseDir = filepath.Dir(baseDir)
		}

		if !filepath.IsAbs(baseDir) {
			cwd, err := os.Getwd()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: cannot determine working directory: %v\n", err)
				os.Exit(1)
			}
			baseDir = filepath.Join(cwd, baseDir)
		}
		baseDir = filepath.Clean(baseDir)
		return
	}

	baseDir, err = os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine working directory: %v\n", err)
		os.Exit(1)
	}
}

// getBaseDir returns the base directory for the project
func getBaseDir() string {
	if baseDirOverride != nil {
		return *baseDirOverride
	}
	return baseDir
}

// ValidateTaskID checks that a task ID is non-empty and non-whitespace.
func ValidateTaskID(id string, cmdUsage string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("task ID required. Usage: tasksync %s", cmdUsage)
	}
	return nil
}
