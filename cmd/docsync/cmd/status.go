package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"docsync-ai/internal/app"
	"docsync-ai/internal/syncer"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [folder...]",
		Short: "Show folder sync status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ids, err := folderIDs(ctx, a, args)
				if err != nil {
					return err
				}
				statuses := make([]syncer.Status, 0, len(ids))
				for _, id := range ids {
					st, err := a.Manager.Status(ctx, id)
					if err != nil {
						return err
					}
					statuses = append(statuses, st)
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), statuses)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tPROVIDER\tREADY\tFILES\tCHUNKS\tLAST SYNC\tROOT")
				for _, st := range statuses {
					last := "never"
					if st.LastSyncedAt != nil {
						last = st.LastSyncedAt.Local().Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%v\t%d\t%d\t%s\t%s\n",
						st.FolderID, st.Name, st.ProviderID, st.Ready, st.Files, st.Chunks, last, st.RootPath)
				}
				return tw.Flush()
			})
		},
	}
}
