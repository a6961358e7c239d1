package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"docsync-ai/internal/app"
	"docsync-ai/internal/syncer"
)

func newSyncCmd() *cobra.Command {
	var full, rebuild bool

	cmd := &cobra.Command{
		Use:   "sync [folder...]",
		Short: "Run one sync cycle per folder",
		Long: `Run a sync cycle for the named folders, or for every declared folder.

Examples:
  docsync sync
  docsync sync notes --full
  docsync sync notes --rebuild`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ids, err := folderIDs(ctx, a, args)
				if err != nil {
					return err
				}
				mode := syncer.ModeIncremental
				if full {
					mode = syncer.ModeFull
				}

				var failed int
				reports := make(map[string]syncer.Report, len(ids))
				for _, id := range ids {
					st, err := a.Manager.Status(ctx, id)
					if err != nil {
						return err
					}
					var report syncer.Report
					if rebuild {
						report, err = a.Manager.Rebuild(ctx, id)
					} else {
						report, err = a.Manager.SyncAndWait(ctx, id, mode)
					}
					if err != nil {
						failed++
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", st.Name, err)
						continue
					}
					reports[st.Name] = report
					if !jsonOutput {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: +%d ~%d -%d renamed %d, embedded %d, reused %d, failed %d (%s)\n",
							st.Name, report.Added, report.Modified, report.Removed, report.Renamed,
							report.Embedded, report.Reused, len(report.Failed), report.Duration)
					}
				}
				if jsonOutput {
					if err := printJSON(cmd.OutOrStdout(), reports); err != nil {
						return err
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d folder(s) failed to sync", failed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Rescan the whole tree")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Drop the index and rebuild it from scratch")

	return cmd
}

// folderIDs resolves folder references, or returns every loaded folder.
func folderIDs(ctx context.Context, a *app.App, refs []string) ([]int64, error) {
	if len(refs) == 0 {
		var ids []int64
		for _, st := range a.Manager.List(ctx) {
			ids = append(ids, st.FolderID)
		}
		return ids, nil
	}
	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		id, err := a.FolderID(ctx, ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
