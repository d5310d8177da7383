package query

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-pdflow/export"
)

// DefaultHistoryLimit caps history queries that do not set a limit.
const DefaultHistoryLimit = 100

func serviceRequired() error {
	return errors.New("export service is required", errors.CategoryInternal).
		WithTextCode("SERVICE_REQUIRED")
}

// ExportStatusHandler returns a single export record.
type ExportStatusHandler struct {
	Service export.Service
}

func NewExportStatusHandler(svc export.Service) *ExportStatusHandler {
	return &ExportStatusHandler{Service: svc}
}

func (h *ExportStatusHandler) Query(ctx context.Context, msg ExportStatus) (export.ExportRecord, error) {
	if h == nil || h.Service == nil {
		return export.ExportRecord{}, serviceRequired()
	}
	return h.Service.Status(ctx, msg.ExportID)
}

// ExportHistoryHandler lists export records, newest first.
type ExportHistoryHandler struct {
	Service export.Service
	// DefaultLimit applies when the filter has no limit; zero lists everything.
	DefaultLimit int
}

func NewExportHistoryHandler(svc export.Service) *ExportHistoryHandler {
	return &ExportHistoryHandler{Service: svc, DefaultLimit: DefaultHistoryLimit}
}

func (h *ExportHistoryHandler) Query(ctx context.Context, msg ExportHistory) ([]export.ExportRecord, error) {
	if h == nil || h.Service == nil {
		return nil, serviceRequired()
	}
	filter := msg.Filter
	if filter.Limit == 0 {
		filter.Limit = h.DefaultLimit
	}
	return h.Service.History(ctx, filter)
}

// ExportArtifactHandler returns the stored artifact metadata of a completed
// export without streaming its content.
type ExportArtifactHandler struct {
	Service export.Service
}

func NewExportArtifactHandler(svc export.Service) *ExportArtifactHandler {
	return &ExportArtifactHandler{Service: svc}
}

func (h *ExportArtifactHandler) Query(ctx context.Context, msg ExportArtifact) (export.ArtifactMeta, error) {
	if h == nil || h.Service == nil {
		return export.ArtifactMeta{}, serviceRequired()
	}
	reader, meta, err := h.Service.Download(ctx, msg.ExportID)
	if err != nil {
		return export.ArtifactMeta{}, err
	}
	_ = reader.Close()
	return meta, nil
}
