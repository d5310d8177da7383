// Package assist holds the content-assistance hooks. Both are disabled: the
// exporter only works with documents the caller supplies.
package assist

import (
	"context"
	"strings"

	"github.com/goliatone/go-pdflow/export"
)

// Assistant exposes the disabled refinement and generation hooks.
type Assistant struct {
	Logger export.Logger
}

// New creates an assistant.
func New(logger export.Logger) *Assistant {
	if logger == nil {
		logger = export.NopLogger{}
	}
	return &Assistant{Logger: logger}
}

// Refine returns the current document unchanged together with a
// not-implemented error.
func (a *Assistant) Refine(ctx context.Context, current, instruction string) (string, error) {
	_ = ctx
	a.logger().Infof("assist: refinement disabled, ignoring instruction (%d chars)", len(strings.TrimSpace(instruction)))
	return current, export.NewError(export.KindNotImpl, "document refinement is disabled", nil)
}

// Generate returns an empty document together with a not-implemented error.
func (a *Assistant) Generate(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	a.logger().Infof("assist: generation disabled, ignoring prompt (%d chars)", len(strings.TrimSpace(prompt)))
	return "", export.NewError(export.KindNotImpl, "template generation is disabled; use the template gallery", nil)
}

func (a *Assistant) logger() export.Logger {
	if a == nil || a.Logger == nil {
		return export.NopLogger{}
	}
	return a.Logger
}
