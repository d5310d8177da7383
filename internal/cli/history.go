package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/goliatone/go-pdflow/export"
	"github.com/spf13/cobra"
)

func (c *CLI) historyCommand() *cobra.Command {
	var (
		state string
		since time.Duration
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history [export-id]",
		Short: "List recorded exports, or show one export",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var records []export.ExportRecord
			if len(args) == 1 {
				record, err := a.Service.Status(ctx, args[0])
				if err != nil {
					return err
				}
				records = []export.ExportRecord{record}
			} else {
				filter := export.HistoryFilter{State: export.ExportState(state), Limit: limit}
				if since > 0 {
					filter.Since = time.Now().Add(-since)
				}
				records, err = a.Service.History(ctx, filter)
				if err != nil {
					return err
				}
			}
			return printRecords(cmd, records)
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "only show exports in this state (completed, failed, ...)")
	cmd.Flags().DurationVar(&since, "since", 0, "only show exports created within this window")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum number of records")
	return cmd
}

func printRecords(cmd *cobra.Command, records []export.ExportRecord) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATE\tFILE\tFORMAT\tPAGES\tCREATED\tERROR")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s/%s\t%d\t%s\t%s\n",
			r.ID, r.State, r.FileName, r.Format.PaperSize, r.Format.Orientation,
			r.Pages, r.CreatedAt.Format(time.RFC3339), r.Error)
	}
	return w.Flush()
}
