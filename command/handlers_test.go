package command

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	gcmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-pdflow/export"
)

type stubSurface struct {
	closed bool
}

func (s *stubSurface) Accessible(context.Context) error                      { return nil }
func (s *stubSurface) InlineWidth(context.Context) (string, error)           { return "", nil }
func (s *stubSurface) SetInlineWidth(context.Context, string) error          { return nil }
func (s *stubSurface) ScrollOffset(context.Context) (export.ScrollOffset, error) {
	return export.ScrollOffset{}, nil
}
func (s *stubSurface) ScrollTo(context.Context, export.ScrollOffset) error { return nil }
func (s *stubSurface) Close() error {
	s.closed = true
	return nil
}

type stubExporter struct {
	calls    []export.ExportRequest
	surfaces []export.Surface
	export   func(ctx context.Context, surface export.Surface, req export.ExportRequest) (export.ExportResult, error)
}

func (s *stubExporter) Export(ctx context.Context, surface export.Surface, req export.ExportRequest) (export.ExportResult, error) {
	s.calls = append(s.calls, req)
	s.surfaces = append(s.surfaces, surface)
	if s.export != nil {
		return s.export(ctx, surface, req)
	}
	return export.ExportResult{ID: "exp-1", FileName: req.FileName}, nil
}

type stubPruner struct {
	cutoff time.Time
	count  int
	err    error
}

func (p *stubPruner) Prune(_ context.Context, cutoff time.Time) (int, error) {
	p.cutoff = cutoff
	return p.count, p.err
}

func textCode(err error) string {
	var ge *goerrors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

func TestExportDocument_Validate(t *testing.T) {
	tests := []struct {
		name string
		msg  ExportDocument
		code string
	}{
		{name: "ok", msg: ExportDocument{Surface: &stubSurface{}}},
		{name: "missing surface", msg: ExportDocument{}, code: "SURFACE_REQUIRED"},
		{
			name: "bad paper",
			msg:  ExportDocument{Surface: &stubSurface{}, Request: export.ExportRequest{Format: export.PageFormatConfig{PaperSize: "tabloid"}}},
			code: "FORMAT_INVALID",
		},
		{
			name: "margin too wide",
			msg:  ExportDocument{Surface: &stubSurface{}, Request: export.ExportRequest{Format: export.PageFormatConfig{MarginMM: 200}}},
			code: "FORMAT_INVALID",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.code == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if got := textCode(err); got != tc.code {
				t.Fatalf("expected %s, got %q (%v)", tc.code, got, err)
			}
		})
	}
}

func TestExportDocumentHandler_StoresResults(t *testing.T) {
	svc := &stubExporter{}
	handler := NewExportDocumentHandler(svc)

	var got export.ExportResult
	result := gcmd.NewResult[export.ExportResult]()
	ctx := gcmd.ContextWithResult(context.Background(), result)

	err := handler.Execute(ctx, ExportDocument{
		Surface: &stubSurface{},
		Request: export.ExportRequest{FileName: "report.pdf"},
		Result:  &got,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got.ID != "exp-1" || got.FileName != "report.pdf" {
		t.Fatalf("unexpected result pointer %+v", got)
	}

	stored, ok := result.Load()
	if !ok {
		t.Fatalf("expected context result")
	}
	if stored.ID != "exp-1" {
		t.Fatalf("expected context result exp-1, got %q", stored.ID)
	}
}

func TestExportDocumentHandler_PropagatesErrors(t *testing.T) {
	svc := &stubExporter{
		export: func(context.Context, export.Surface, export.ExportRequest) (export.ExportResult, error) {
			return export.ExportResult{}, export.NewError(export.KindBusy, "busy", nil)
		},
	}
	var got export.ExportResult
	err := NewExportDocumentHandler(svc).Execute(context.Background(), ExportDocument{Surface: &stubSurface{}, Result: &got})
	if export.KindFromError(err) != export.KindBusy {
		t.Fatalf("expected busy, got %v", err)
	}
	if got.ID != "" {
		t.Fatalf("expected result untouched on failure")
	}

	var nilHandler *ExportDocumentHandler
	if err := nilHandler.Execute(context.Background(), ExportDocument{}); textCode(err) != "SERVICE_REQUIRED" {
		t.Fatalf("expected SERVICE_REQUIRED, got %v", err)
	}
}

func TestPruneArtifactsHandler_DerivesCutoff(t *testing.T) {
	pruner := &stubPruner{count: 2}
	handler := NewPruneArtifactsHandler(pruner, 24*time.Hour)
	now := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
	handler.Clock = func() time.Time { return now }

	var count int
	if err := handler.Execute(context.Background(), PruneArtifacts{Result: &count}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 pruned, got %d", count)
	}
	if !pruner.cutoff.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("unexpected cutoff %v", pruner.cutoff)
	}

	explicit := now.Add(-time.Hour)
	if err := handler.Execute(context.Background(), PruneArtifacts{Before: explicit}); err != nil {
		t.Fatalf("execute explicit: %v", err)
	}
	if !pruner.cutoff.Equal(explicit) {
		t.Fatalf("expected explicit cutoff, got %v", pruner.cutoff)
	}
}

func TestPruneArtifactsHandler_RequiresCutoff(t *testing.T) {
	handler := NewPruneArtifactsHandler(&stubPruner{}, 0)
	if err := handler.Execute(context.Background(), PruneArtifacts{}); textCode(err) != "CUTOFF_REQUIRED" {
		t.Fatalf("expected CUTOFF_REQUIRED, got %v", err)
	}
	if err := handler.CronHandler()(); err == nil {
		t.Fatalf("expected cron run to fail without cutoff")
	}
	if handler.CronOptions().Expression == "" {
		t.Fatalf("expected default cron expression")
	}
}
