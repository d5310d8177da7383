package command

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-pdflow/export"
)

// BatchItem describes one document in a batch manifest. Exactly one of
// Template, Path or HTML selects the markup.
type BatchItem struct {
	Template string                  `json:"template,omitempty"`
	Path     string                  `json:"path,omitempty"`
	HTML     string                  `json:"html,omitempty"`
	FileName string                  `json:"file_name,omitempty"`
	Format   export.PageFormatConfig `json:"format"`
}

// BatchLoader loads batch items from a source.
type BatchLoader func(ctx context.Context) ([]BatchItem, error)

// MarkupResolver turns a batch item into HTML.
type MarkupResolver func(ctx context.Context, item BatchItem) (string, error)

// SurfaceOpener opens a surface for markup. Surfaces that implement io.Closer
// are closed after their export.
type SurfaceOpener func(ctx context.Context, markup string) (export.Surface, error)

// BatchCommand exports a list of documents one after another.
type BatchCommand struct {
	exporter   Exporter
	open       SurfaceOpener
	resolve    MarkupResolver
	loader     BatchLoader
	cliConfig  gcmd.CLIConfig
	cronConfig gcmd.HandlerConfig
	limits     BatchLimits
	sleep      func(time.Duration)
}

// BatchOption customizes batch commands.
type BatchOption func(*BatchCommand)

// BatchLimits bounds batch execution throughput.
type BatchLimits struct {
	MaxItems    int
	MinInterval time.Duration
}

// WithBatchCLIConfig overrides CLI configuration.
func WithBatchCLIConfig(cfg gcmd.CLIConfig) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.cliConfig = cfg
	}
}

// WithBatchCronConfig overrides cron configuration.
func WithBatchCronConfig(cfg gcmd.HandlerConfig) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.cronConfig = cfg
	}
}

// WithBatchLimits overrides batch execution limits.
func WithBatchLimits(limits BatchLimits) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.limits = limits
	}
}

// WithMarkupResolver sets how items are turned into HTML.
func WithMarkupResolver(resolve MarkupResolver) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.resolve = resolve
	}
}

// NewBatchExportCommand creates a batch export CLI/Cron command.
func NewBatchExportCommand(exporter Exporter, open SurfaceOpener, loader BatchLoader, opts ...BatchOption) *BatchCommand {
	cmd := &BatchCommand{
		exporter: exporter,
		open:     open,
		resolve:  inlineMarkup,
		loader:   loader,
		cliConfig: gcmd.CLIConfig{
			Path:        []string{"pdflow-batch"},
			Description: "Export a manifest of documents",
			Group:       "pdflow",
		},
		cronConfig: gcmd.HandlerConfig{Expression: "0 * * * *"},
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cmd)
		}
	}
	return cmd
}

// CronHandler executes the configured batch.
func (c *BatchCommand) CronHandler() func() error {
	return func() error {
		_, err := c.Run(context.Background(), "")
		return err
	}
}

// CronOptions returns cron configuration.
func (c *BatchCommand) CronOptions() gcmd.HandlerConfig {
	if c == nil {
		return gcmd.HandlerConfig{}
	}
	return c.cronConfig
}

// CLIHandler exposes the CLI handler.
func (c *BatchCommand) CLIHandler() any {
	return &batchCLI{cmd: c}
}

// CLIOptions returns CLI configuration.
func (c *BatchCommand) CLIOptions() gcmd.CLIConfig {
	if c == nil {
		return gcmd.CLIConfig{}
	}
	return c.cliConfig
}

// Run exports every item from the manifest at from, or from the loader when
// from is empty. It stops at the first failure and returns the number of
// documents exported before it.
func (c *BatchCommand) Run(ctx context.Context, from string) (int, error) {
	if c == nil {
		return 0, errors.New("batch command is nil", errors.CategoryInternal).
			WithTextCode("BATCH_CMD_NIL")
	}
	if c.exporter == nil || c.open == nil {
		return 0, errors.New("batch exporter and surface opener are required", errors.CategoryValidation).
			WithTextCode("EXPORTER_REQUIRED")
	}

	items, err := c.loadItems(ctx, from)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, item := range items {
		if c.limits.MaxItems > 0 && count >= c.limits.MaxItems {
			break
		}
		if err := c.exportItem(ctx, item); err != nil {
			return count, err
		}
		count++
		if c.limits.MinInterval > 0 && c.sleep != nil {
			c.sleep(c.limits.MinInterval)
		}
	}
	return count, nil
}

func (c *BatchCommand) exportItem(ctx context.Context, item BatchItem) error {
	resolve := c.resolve
	if resolve == nil {
		resolve = inlineMarkup
	}
	markup, err := resolve(ctx, item)
	if err != nil {
		return err
	}

	surface, err := c.open(ctx, markup)
	if err != nil {
		return err
	}
	if closer, ok := surface.(io.Closer); ok {
		defer closer.Close()
	}

	_, err = c.exporter.Export(ctx, surface, export.ExportRequest{
		Format:   item.Format,
		FileName: item.FileName,
	})
	return err
}

func (c *BatchCommand) loadItems(ctx context.Context, from string) ([]BatchItem, error) {
	if strings.TrimSpace(from) != "" {
		return loadBatchItemsFromFile(from)
	}
	if c.loader == nil {
		return nil, errors.New("batch loader not configured", errors.CategoryValidation).
			WithTextCode("LOADER_REQUIRED")
	}
	return c.loader(ctx)
}

func inlineMarkup(_ context.Context, item BatchItem) (string, error) {
	if strings.TrimSpace(item.HTML) == "" {
		return "", errors.New("batch item has no inline html", errors.CategoryValidation).
			WithTextCode("MARKUP_REQUIRED")
	}
	return item.HTML, nil
}

type batchCLI struct {
	cmd  *BatchCommand
	From string `kong:"name='from',help='Path to JSON batch manifest'"`
}

func (c *batchCLI) Run() error {
	if c == nil || c.cmd == nil {
		return errors.New("batch command is required", errors.CategoryInternal).
			WithTextCode("BATCH_CMD_NIL")
	}
	_, err := c.cmd.Run(context.Background(), c.From)
	return err
}

func loadBatchItemsFromFile(path string) ([]BatchItem, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "read batch file failed").
			WithTextCode("BATCH_FILE_READ")
	}

	var items []BatchItem
	if err := json.Unmarshal(content, &items); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "batch file invalid JSON").
			WithTextCode("BATCH_FILE_INVALID")
	}
	return items, nil
}

// CLIHandler exposes pruning via CLI.
func (h *PruneArtifactsHandler) CLIHandler() any {
	return &pruneCLI{handler: h}
}

// CLIOptions describes prune CLI metadata.
func (h *PruneArtifactsHandler) CLIOptions() gcmd.CLIConfig {
	return gcmd.CLIConfig{
		Path:        []string{"pdflow-prune"},
		Description: "Remove expired PDF artifacts",
		Group:       "pdflow",
	}
}

type pruneCLI struct {
	handler *PruneArtifactsHandler
}

func (c *pruneCLI) Run() error {
	if c == nil || c.handler == nil {
		return errors.New("prune handler is required", errors.CategoryInternal).
			WithTextCode("PRUNE_HANDLER_REQUIRED")
	}
	return c.handler.Execute(context.Background(), PruneArtifacts{})
}
