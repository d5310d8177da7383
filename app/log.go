package app

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/goliatone/go-pdflow/export"
)

var _ export.Logger = (*log.Logger)(nil)

// NewLogger creates a timestamped logger filtered at level.
func NewLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
		Prefix:          "pdflow",
	})
}
