// Package cli implements the pdflow command-line interface.
//
// Commands:
//   - export: render an HTML document or gallery template to PDF
//   - templates: list the built-in gallery templates
//   - batch: export every document in a JSON manifest
//   - history: list recorded exports
//   - prune: remove stored PDFs past the retention window
//
// All commands accept --config for a TOML settings file and --verbose for
// debug logging. PDFLOW_* environment variables override file settings.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/goliatone/go-pdflow/app"
	"github.com/goliatone/go-pdflow/config"
	"github.com/spf13/cobra"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Out    io.Writer

	configPath string
	newApp     func(ctx context.Context, cfg config.Config, logger *log.Logger) (*app.App, error)
}

// New creates a CLI writing logs to logw and command output to out.
func New(logw, out io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: app.NewLogger(logw, level),
		Out:    out,
		newApp: app.New,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "pdflow",
		Short:         "pdflow turns HTML documents into paginated PDFs",
		Long:          `pdflow renders HTML in headless Chromium, rasterizes it at page width and slices the result into fixed-size PDF pages.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				c.SetLogLevel(LogDebug)
			}
		},
	}
	if c.Out != nil {
		root.SetOut(c.Out)
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to a TOML config file")

	root.AddCommand(c.exportCommand())
	root.AddCommand(c.templatesCommand())
	root.AddCommand(c.batchCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.pruneCommand())

	return root
}

func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.configPath)
}

// openApp loads configuration and assembles the runtime. Callers must Close
// the returned App.
func (c *CLI) openApp(ctx context.Context) (*app.App, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	return c.newApp(ctx, cfg, c.Logger)
}
