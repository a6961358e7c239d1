// Package cmd provides the CLI commands for docsync.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docsync-ai/internal/app"
	"docsync-ai/internal/config"
	"docsync-ai/internal/contextutil"
)

var (
	foldersFile string
	jsonOutput  bool
)

// NewRootCmd creates the root command for the docsync CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docsync",
		Short: "Keep folders indexed for retrieval",
		Long: `docsync keeps the folders declared in the folders file indexed in a
per-folder vector index and queries them.

The commands run in-process against the configured database and index
directory. Stop the API server first when using the embedded index, since
it holds the index lock.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&foldersFile, "folders", "", "Folders file (overrides FOLDERS_FILE)")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON output")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newRetrieveCmd())
	cmd.AddCommand(newAskCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// withApp loads configuration, registers the declared folders and loads
// them without background workers before running fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if foldersFile != "" {
		cfg.FoldersFile = foldersFile
	}
	// The CLI never watches; each command is one-shot.
	cfg.DisableWatch = true

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)
	ctx := contextutil.WithLogger(cmd.Context(), logger)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	if err := a.Seed(ctx, false); err != nil {
		return err
	}
	if err := a.Manager.Load(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
