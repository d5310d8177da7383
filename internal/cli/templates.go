package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/goliatone/go-pdflow/sources/gallery"
	"github.com/spf13/cobra"
)

func (c *CLI) templatesCommand() *cobra.Command {
	var show string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List the built-in gallery templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := gallery.New()
			if err != nil {
				return err
			}
			if show != "" {
				out, err := g.Render(show, nil)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
			for _, tpl := range g.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", tpl.ID, tpl.Name, tpl.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&show, "show", "", "print the rendered HTML of a template")
	return cmd
}
