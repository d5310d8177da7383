package export

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"testing"
	"time"
)

// blockingCapturer holds the capture open until release is closed.
type blockingCapturer struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (c *blockingCapturer) Capture(_ context.Context, _ Surface, opts CaptureOptions) (image.Image, error) {
	c.once.Do(func() { close(c.started) })
	<-c.release
	return image.NewNRGBA(image.Rect(0, 0, opts.WidthPx, 10)), nil
}

func newTestService(capturer Capturer, writer DocumentWriter) (Service, *MemoryTracker, *MemoryStore) {
	tracker := NewMemoryTracker()
	store := NewMemoryStore()
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	ids := 0
	svc := NewService(ServiceConfig{
		Exporter:        NewExporter(capturer, writer),
		Tracker:         tracker,
		Store:           store,
		FileNamePattern: "export_{{.Paper}}_{{.Date}}",
		Now:             func() time.Time { return now },
		IDGenerator: func() string {
			ids++
			return []string{"first", "second", "third"}[ids-1]
		},
	})
	return svc, tracker, store
}

func TestService_ExportRecordsCompletion(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(&heightCapturer{height: 2000}, &recordingWriter{})

	result, err := svc.Export(ctx, &fakeSurface{}, ExportRequest{Format: PageFormatConfig{PaperSize: "letter"}})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.ID != "first" || result.FileName != "export_letter_20240506.pdf" {
		t.Fatalf("unexpected result %+v", result)
	}

	record, err := svc.Status(ctx, "first")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if record.State != StateCompleted || record.Pages != result.Pages || record.Artifact.Key != "first/export_letter_20240506.pdf" {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.Format.PaperSize != PaperLetter || record.Format.Orientation != OrientationPortrait {
		t.Fatalf("expected normalized format on record, got %+v", record.Format)
	}

	reader, meta, err := svc.Download(ctx, "first")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer reader.Close()
	data, _ := io.ReadAll(reader)
	if int64(len(data)) != result.Bytes || meta.ContentType != "application/pdf" {
		t.Fatalf("unexpected artifact: %d bytes, meta %+v", len(data), meta)
	}
}

func TestService_ExportRecordsFailure(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(&heightCapturer{err: errors.New("tainted")}, &recordingWriter{})

	_, err := svc.Export(ctx, &fakeSurface{}, ExportRequest{FileName: "broken"})
	if mapped := AsGoError(err); mapped.TextCode != "capture_failed" {
		t.Fatalf("expected capture_failed, got %v", err)
	}

	record, err := svc.Status(ctx, "first")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if record.State != StateFailed || record.ErrorKind != KindCapture || record.FileName != "broken.pdf" {
		t.Fatalf("unexpected record %+v", record)
	}

	if _, _, err := svc.Download(ctx, "first"); KindFromError(err) != KindNotFound {
		t.Fatalf("expected not found for failed export download, got %v", err)
	}
}

func TestService_RejectsConcurrentExportOnSameSurface(t *testing.T) {
	ctx := context.Background()
	capturer := &blockingCapturer{started: make(chan struct{}), release: make(chan struct{})}
	svc, _, _ := newTestService(capturer, &recordingWriter{})
	surface := &fakeSurface{}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Export(ctx, surface, ExportRequest{})
		done <- err
	}()
	<-capturer.started

	_, err := svc.Export(ctx, surface, ExportRequest{})
	if KindFromError(err) != KindBusy {
		t.Fatalf("expected busy, got %v", err)
	}

	close(capturer.release)
	if err := <-done; err != nil {
		t.Fatalf("first export: %v", err)
	}

	if _, err := svc.Export(ctx, surface, ExportRequest{}); err != nil {
		t.Fatalf("expected surface to be free after export, got %v", err)
	}
}

func TestService_HistoryFiltersAndLimits(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(&heightCapturer{height: 10}, &recordingWriter{})

	for i := 0; i < 3; i++ {
		if _, err := svc.Export(ctx, &fakeSurface{}, ExportRequest{}); err != nil {
			t.Fatalf("export %d: %v", i, err)
		}
	}

	records, err := svc.History(ctx, HistoryFilter{State: StateCompleted, Limit: 2})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	records, err = svc.History(ctx, HistoryFilter{State: StateFailed})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no failed records, got %d", len(records))
	}

	if _, err := svc.History(ctx, HistoryFilter{Limit: -1}); KindFromError(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Status(ctx, "missing"); KindFromError(err) != KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
