package cli

import (
	"fmt"
	"time"

	pdfcmd "github.com/goliatone/go-pdflow/command"
	"github.com/spf13/cobra"
)

func (c *CLI) pruneCommand() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove stored PDFs older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			maxAge := a.Config.Retention()
			if olderThan > 0 {
				maxAge = olderThan
			}
			var count int
			handler := pdfcmd.NewPruneArtifactsHandler(a.Store, maxAge)
			if err := handler.Execute(ctx, pdfcmd.PruneArtifacts{Result: &count}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d artifacts\n", count)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "override the configured retention window")
	return cmd
}
