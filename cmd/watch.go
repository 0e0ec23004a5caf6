package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tasksync/tasksync/internal/db"
	"github.com/tasksync/tasksync/internal/output"
	"github.com/tasksync/tasksync/internal/sync"
	"github.com/tasksync/tasksync/internal/syncclient"
	"github.com/tasksync/tasksync/internal/syncconfig"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Run sync cycles on a fixed interval until interrupted",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		database, err := db.Open(baseDir)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		cfg := syncconfig.Load()
		transport := syncclient.New(cfg.APIBaseURL)
		engine := sync.NewEngine(database, transport, cfg.BatchSize, cfg.MaxRetries)

		intervalSec, _ := cmd.Flags().GetInt("interval")
		interval := time.Duration(intervalSec) * time.Second

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("watching for changes every %s (Ctrl-C to stop)\n", interval)
		runAndReport(ctx, engine)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				fmt.Println("stopping")
				return nil
			case <-ticker.C:
				runAndReport(ctx, engine)
			}
		}
	},
}

func runAndReport(ctx context.Context, engine *sync.Engine) {
	result, err := engine.RunCycle(ctx)
	if err != nil {
		output.Error("sync cycle failed: %v", err)
		return
	}
	if result.SyncedItems > 0 || result.FailedItems > 0 {
		fmt.Printf("[%s] synced %d, failed %d\n", time.Now().UTC().Format(time.RFC3339), result.SyncedItems, result.FailedItems)
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Int("interval", 30, "Seconds between sync cycles")
}
