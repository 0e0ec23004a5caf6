package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/tasksync/tasksync/internal/mockserver"
	"github.com/tasksync/tasksync/internal/output"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve-mock",
	Short:   "Run a local stub sync server for development and testing",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		srv := mockserver.New(mockserver.Config{ListenAddr: addr})
		if err := srv.Start(); err != nil {
			output.Error("failed to start mock server: %v", err)
			return err
		}

		fmt.Printf("mock sync server listening on %s\n", addr)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":3000", "Address to listen on")
}
