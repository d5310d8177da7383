package assist

import (
	"context"
	"testing"

	"github.com/goliatone/go-pdflow/export"
)

type countingLogger struct {
	export.NopLogger
	infos int
}

func (l *countingLogger) Infof(string, ...any) { l.infos++ }

func TestAssistant_RefineReturnsInputUnchanged(t *testing.T) {
	logger := &countingLogger{}
	a := New(logger)

	got, err := a.Refine(context.Background(), "<p>hi</p>", "make it blue")
	if got != "<p>hi</p>" {
		t.Fatalf("expected unchanged document, got %q", got)
	}
	if export.KindFromError(err) != export.KindNotImpl {
		t.Fatalf("expected not implemented, got %v", err)
	}
	if logger.infos != 1 {
		t.Fatalf("expected one log line, got %d", logger.infos)
	}
}

func TestAssistant_GenerateIsDisabled(t *testing.T) {
	var a *Assistant
	got, err := a.Generate(context.Background(), "a resume")
	if got != "" {
		t.Fatalf("expected empty document, got %q", got)
	}
	if export.KindFromError(err) != export.KindNotImpl {
		t.Fatalf("expected not implemented, got %v", err)
	}
}
