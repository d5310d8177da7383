package command

import (
	"context"
	"time"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-pdflow/export"
)

// Exporter runs a single export.
type Exporter interface {
	Export(ctx context.Context, surface export.Surface, req export.ExportRequest) (export.ExportResult, error)
}

// ExportDocumentHandler handles export commands.
type ExportDocumentHandler struct {
	Service Exporter
}

func NewExportDocumentHandler(svc Exporter) *ExportDocumentHandler {
	return &ExportDocumentHandler{Service: svc}
}

func (h *ExportDocumentHandler) Execute(ctx context.Context, msg ExportDocument) error {
	if h == nil || h.Service == nil {
		return errors.New("export service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	result, err := h.Service.Export(ctx, msg.Surface, msg.Request)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = result
	}
	if res := gcmd.ResultFromContext[export.ExportResult](ctx); res != nil {
		res.Store(result)
	}
	return nil
}

// ArtifactPruner removes artifacts older than a cutoff.
type ArtifactPruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// PruneArtifactsHandler removes expired artifacts.
type PruneArtifactsHandler struct {
	Pruner ArtifactPruner
	// MaxAge derives the cutoff when the message carries none.
	MaxAge time.Duration
	Config gcmd.HandlerConfig
	Clock  func() time.Time
}

func NewPruneArtifactsHandler(pruner ArtifactPruner, maxAge time.Duration) *PruneArtifactsHandler {
	return &PruneArtifactsHandler{
		Pruner: pruner,
		MaxAge: maxAge,
		Config: gcmd.HandlerConfig{Expression: "0 3 * * *"},
		Clock:  time.Now,
	}
}

func (h *PruneArtifactsHandler) Execute(ctx context.Context, msg PruneArtifacts) error {
	if h == nil || h.Pruner == nil {
		return errors.New("artifact pruner is required", errors.CategoryInternal).
			WithTextCode("PRUNER_REQUIRED")
	}
	cutoff := msg.Before
	if cutoff.IsZero() {
		if h.MaxAge <= 0 {
			return errors.New("prune cutoff or max age is required", errors.CategoryValidation).
				WithTextCode("CUTOFF_REQUIRED")
		}
		now := time.Now
		if h.Clock != nil {
			now = h.Clock
		}
		cutoff = now().Add(-h.MaxAge)
	}
	count, err := h.Pruner.Prune(ctx, cutoff)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = count
	}
	if res := gcmd.ResultFromContext[int](ctx); res != nil {
		res.Store(count)
	}
	return nil
}

func (h *PruneArtifactsHandler) CronHandler() func() error {
	return func() error {
		return h.Execute(context.Background(), PruneArtifacts{})
	}
}

func (h *PruneArtifactsHandler) CronOptions() gcmd.HandlerConfig {
	return h.Config
}
