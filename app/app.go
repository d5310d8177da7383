// Package app assembles a pdflow runtime from configuration: browser,
// exporter, artifact store, history tracker and document sources.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	pdfchromium "github.com/goliatone/go-pdflow/adapters/chromium"
	exportpdf "github.com/goliatone/go-pdflow/adapters/pdf"
	storefs "github.com/goliatone/go-pdflow/adapters/store/fs"
	trackerbun "github.com/goliatone/go-pdflow/adapters/tracker/bun"
	"github.com/goliatone/go-pdflow/command"
	"github.com/goliatone/go-pdflow/config"
	"github.com/goliatone/go-pdflow/export"
	"github.com/goliatone/go-pdflow/sources/assist"
	"github.com/goliatone/go-pdflow/sources/file"
	"github.com/goliatone/go-pdflow/sources/gallery"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// App holds the assembled runtime.
type App struct {
	Config   config.Config
	Logger   *log.Logger
	Browser  *pdfchromium.Browser
	Exporter *export.Exporter
	Store    *storefs.Store
	Tracker  export.Tracker
	Service  export.Service
	Gallery  *gallery.Gallery
	Files    *file.Source
	Assist   *assist.Assistant

	db *bun.DB
}

// New builds an App. The browser is started lazily on first use.
func New(ctx context.Context, cfg config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Storage.ArtifactDir, 0o755); err != nil {
		return nil, export.NewError(export.KindInternal, "create artifact directory", err)
	}
	store := storefs.NewStore(cfg.Storage.ArtifactDir)

	tracker, db, err := openTracker(ctx, cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}

	browser := &pdfchromium.Browser{
		BrowserPath:         cfg.Browser.Path,
		Headless:            cfg.Browser.Headless,
		Timeout:             cfg.BrowserTimeout(),
		Args:                cfg.Browser.Args,
		BaseURL:             cfg.Browser.BaseURL,
		BlockExternalAssets: cfg.Browser.BlockExternalAssets,
	}

	strategy := export.SliceStrategy(cfg.Export.SliceStrategy)
	writer := exportpdf.NewWriter()
	writer.Clip = strategy == export.SliceReplace

	exporter := export.NewExporter(&pdfchromium.Capturer{Browser: browser, Logger: logger}, writer)
	exporter.Store = store
	exporter.Density = export.Density{PixelsPerInch: cfg.Export.PixelsPerInch}
	exporter.Scale = cfg.Export.Scale
	exporter.JPEGQuality = cfg.Export.JPEGQuality
	exporter.Strategy = strategy
	exporter.Background = cfg.Export.Background
	exporter.MaxDuration = cfg.ExportTimeout()
	exporter.Logger = logger

	g, err := gallery.New()
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}

	service := export.NewService(export.ServiceConfig{
		Exporter:        exporter,
		Tracker:         tracker,
		Store:           store,
		FileNamePattern: cfg.Export.FileNamePattern,
		Logger:          logger,
	})

	return &App{
		Config:   cfg,
		Logger:   logger,
		Browser:  browser,
		Exporter: exporter,
		Store:    store,
		Tracker:  tracker,
		Service:  service,
		Gallery:  g,
		Files:    &file.Source{MaxBytes: cfg.Export.MaxUploadBytes},
		Assist:   assist.New(logger),
		db:       db,
	}, nil
}

// OpenSurface loads markup into a new browser tab.
func (a *App) OpenSurface(ctx context.Context, markup string) (export.Surface, error) {
	surface, err := a.Browser.OpenSurface(ctx, markup)
	if err != nil {
		return nil, err
	}
	return surface, nil
}

// Resolve returns the markup a batch item points at.
func (a *App) Resolve(ctx context.Context, item command.BatchItem) (string, error) {
	set := 0
	for _, v := range []string{item.Template, item.Path, item.HTML} {
		if strings.TrimSpace(v) != "" {
			set++
		}
	}
	if set != 1 {
		return "", export.NewError(export.KindValidation, "exactly one of template, path or html is required", nil)
	}

	switch {
	case strings.TrimSpace(item.Template) != "":
		return a.Gallery.Render(item.Template, nil)
	case strings.TrimSpace(item.Path) != "":
		return a.Files.Load(ctx, item.Path)
	default:
		return item.HTML, nil
	}
}

// BatchCommand returns a batch exporter bound to this runtime.
func (a *App) BatchCommand(loader command.BatchLoader, opts ...command.BatchOption) *command.BatchCommand {
	opts = append([]command.BatchOption{command.WithMarkupResolver(a.Resolve)}, opts...)
	return command.NewBatchExportCommand(a.Service, a.OpenSurface, loader, opts...)
}

// Close stops the browser and closes the history database.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.Browser != nil {
		errs = append(errs, a.Browser.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

func openTracker(ctx context.Context, path string) (export.Tracker, *bun.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return export.NewMemoryTracker(), nil, nil
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, export.NewError(export.KindInternal, "create database directory", err)
		}
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, nil, export.NewError(export.KindInternal, fmt.Sprintf("open history database %s", path), err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())

	tracker := trackerbun.NewTracker(db)
	if err := tracker.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return tracker, db, nil
}
