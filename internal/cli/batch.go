package cli

import (
	"fmt"

	"github.com/goliatone/go-pdflow/command"
	"github.com/spf13/cobra"
)

func (c *CLI) batchCommand() *cobra.Command {
	var (
		from  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Export every document listed in a JSON manifest",
		Long: `Export every document listed in a JSON manifest. Each entry selects one
of "template", "path" or "html" and may set "file_name" and "format".
Processing stops at the first failed export.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == "" {
				return fmt.Errorf("--from is required")
			}
			ctx := cmd.Context()
			a, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			batch := a.BatchCommand(nil, command.WithBatchLimits(command.BatchLimits{MaxItems: limit}))
			count, err := batch.Run(ctx, from)
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d documents\n", count)
			return err
		},
	}
	cmd.Flags().StringVarP(&from, "from", "f", "", "path to the JSON batch manifest")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of documents to export (0 for all)")
	return cmd
}
