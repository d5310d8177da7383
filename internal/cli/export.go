package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-pdflow/command"
	"github.com/goliatone/go-pdflow/export"
	"github.com/spf13/cobra"
)

// exportOpts holds flags for the export command.
type exportOpts struct {
	template    string
	html        string
	output      string
	name        string
	paper       string
	orientation string
	margin      float64
}

func (c *CLI) exportCommand() *cobra.Command {
	var opts exportOpts

	cmd := &cobra.Command{
		Use:   "export [file.html]",
		Short: "Export an HTML file or gallery template to PDF",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := opts.batchItem(args)
			if err != nil {
				return err
			}
			return c.runExport(cmd.Context(), cmd, item, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "gallery template to export instead of a file")
	cmd.Flags().StringVar(&opts.html, "html", "", "inline HTML to export")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the PDF to this path as well as the artifact store")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "PDF file name (defaults to the configured pattern)")
	cmd.Flags().StringVarP(&opts.paper, "paper", "p", "", "paper size: a4, letter, legal")
	cmd.Flags().StringVar(&opts.orientation, "orientation", "", "orientation: portrait (p) or landscape (l)")
	cmd.Flags().Float64Var(&opts.margin, "margin", -1, "margin in millimeters")

	return cmd
}

// batchItem selects the document source from flags and positional args.
func (o exportOpts) batchItem(args []string) (command.BatchItem, error) {
	item := command.BatchItem{
		Template: strings.TrimSpace(o.template),
		HTML:     o.html,
		FileName: o.name,
	}
	if len(args) == 1 {
		item.Path = args[0]
	}
	sources := 0
	for _, v := range []string{item.Template, item.Path, strings.TrimSpace(item.HTML)} {
		if v != "" {
			sources++
		}
	}
	if sources != 1 {
		return command.BatchItem{}, fmt.Errorf("provide exactly one of a file argument, --template or --html")
	}
	return item, nil
}

// pageFormat overlays the flag values on base. Empty flags keep the base
// value; a negative margin means unset.
func (o exportOpts) pageFormat(base export.PageFormatConfig) (export.PageFormatConfig, error) {
	format := base
	if o.paper != "" {
		format.PaperSize = export.PaperSize(o.paper)
	}
	if o.orientation != "" {
		format.Orientation = export.Orientation(o.orientation)
	}
	if o.margin >= 0 {
		format.MarginMM = o.margin
	}
	format = export.NormalizeFormat(format)
	if err := export.ValidateFormat(format); err != nil {
		return export.PageFormatConfig{}, err
	}
	return format, nil
}

func (c *CLI) runExport(ctx context.Context, cmd *cobra.Command, item command.BatchItem, opts exportOpts) error {
	a, err := c.openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	format, err := opts.pageFormat(a.Config.PageFormat())
	if err != nil {
		return err
	}
	markup, err := a.Resolve(ctx, item)
	if err != nil {
		return err
	}

	surface, err := a.OpenSurface(ctx, markup)
	if err != nil {
		return err
	}
	if closer, ok := surface.(io.Closer); ok {
		defer closer.Close()
	}

	var buf bytes.Buffer
	req := export.ExportRequest{Format: format, FileName: item.FileName}
	if opts.output != "" {
		req.Output = &buf
	}
	result, err := a.Service.Export(ctx, surface, req)
	if err != nil {
		if export.IsExportFailure(err) {
			c.Logger.Error("export failed; try a simpler document", "err", err)
		}
		return err
	}

	if opts.output != "" {
		if err := os.MkdirAll(filepath.Dir(opts.output), 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		if err := os.WriteFile(opts.output, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d pages\t%d bytes\n", result.ID, result.FileName, result.Pages, result.Bytes)
	return nil
}
