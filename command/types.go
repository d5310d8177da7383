package command

import (
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-pdflow/export"
)

// ExportDocument exports a live surface to PDF.
type ExportDocument struct {
	Surface export.Surface
	Request export.ExportRequest
	Result  *export.ExportResult
}

func (ExportDocument) Type() string { return "pdflow:export" }

func (msg ExportDocument) Validate() error {
	if msg.Surface == nil {
		return errors.New("surface is required", errors.CategoryValidation).
			WithTextCode("SURFACE_REQUIRED")
	}
	if err := export.ValidateFormat(export.NormalizeFormat(msg.Request.Format)); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "page format is invalid").
			WithTextCode("FORMAT_INVALID")
	}
	return nil
}

// PruneArtifacts removes stored PDFs created before a cutoff.
type PruneArtifacts struct {
	Before time.Time
	Result *int
}

func (PruneArtifacts) Type() string { return "pdflow:prune" }

func (PruneArtifacts) Validate() error { return nil }
