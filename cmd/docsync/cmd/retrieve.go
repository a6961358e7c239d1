package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docsync-ai/internal/app"
	"docsync-ai/internal/rag"
)

func newRetrieveCmd() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "retrieve <folder> <query>",
		Short: "Print the chunks nearest to a query",
		Long: `Print the chunks of a folder nearest to a query, best first.

Examples:
  docsync retrieve notes "hello world"
  docsync retrieve notes "release checklist" -k 10 --json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args[1:], " ")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				id, err := a.FolderID(ctx, args[0])
				if err != nil {
					return err
				}
				result, err := a.Retriever.Retrieve(ctx, id, query, k)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), result)
				}
				out := cmd.OutOrStdout()
				for _, c := range result.Chunks {
					fmt.Fprintf(out, "%d. %s#%d (%.3f)\n", c.Rank, c.RelPath, c.Ordinal, c.Score)
					fmt.Fprintf(out, "   %s\n", preview(c.Text, 160))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&k, "limit", "k", rag.DefaultK, "Number of chunks to return")

	return cmd
}

func newAskCmd() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "ask <folder> <question>",
		Short: "Answer a question from a folder's contents",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args[1:], " ")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				id, err := a.FolderID(ctx, args[0])
				if err != nil {
					return err
				}
				answer, err := a.Engine.Ask(ctx, id, rag.AskRequest{Question: question, K: k})
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), answer)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, answer.Text)
				if len(answer.Sources) > 0 {
					fmt.Fprintln(out, "\nSources:")
					for _, s := range answer.Sources {
						fmt.Fprintf(out, "  - %s#%d\n", s.RelPath, s.Ordinal)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&k, "limit", "k", rag.DefaultK, "Number of chunks to retrieve")

	return cmd
}

// preview collapses whitespace and truncates s to n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
