package cmd

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tasksync/tasksync/internal/db"
)

// setupTestProject initializes a fresh .tasksync project in a temp dir and
// points the CLI at it for the duration of the test.
func setupTestProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	database, err := db.Initialize(dir)
	if err != nil {
		t.Fatalf("db.Initialize failed: %v", err)
	}
	database.Close()

	baseDirOverride = &dir
	t.Cleanup(func() { baseDirOverride = nil })
	return dir
}

// resetAllFlags restores every flag on cmd and its subcommands to its
// default value. cobra/pflag flags live on long-lived package vars, so
// without this a flag set by one test would leak into the next.
func resetAllFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetAllFlags(c)
	}
}

// runCommand executes rootCmd with args, capturing stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetAllFlags(rootCmd)

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe failed: %v", err)
	}
	os.Stdout = w

	rootCmd.SetArgs(args)
	execErr := rootCmd.Execute()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String(), execErr
}

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe failed: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}
