package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"testing"
)

type fakeSurface struct {
	mu          sync.Mutex
	width       string
	scroll      ScrollOffset
	accessErr   error
	failRestore bool
	writes      int
}

func (s *fakeSurface) Accessible(context.Context) error { return s.accessErr }

func (s *fakeSurface) InlineWidth(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, nil
}

func (s *fakeSurface) SetInlineWidth(_ context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.failRestore && value != "794px" {
		return errors.New("document detached")
	}
	s.width = value
	return nil
}

func (s *fakeSurface) ScrollOffset(context.Context) (ScrollOffset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scroll, nil
}

func (s *fakeSurface) ScrollTo(_ context.Context, offset ScrollOffset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scroll = offset
	return nil
}

func (s *fakeSurface) state() (string, ScrollOffset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.scroll
}

// heightCapturer returns a bitmap of the pinned width times the scale and a
// fixed height, recording what the surface looked like during capture.
type heightCapturer struct {
	height    int
	err       error
	panicMsg  string
	calls     int
	seenWidth string
	seenTop   float64
	opts      CaptureOptions
}

func (c *heightCapturer) Capture(ctx context.Context, surface Surface, opts CaptureOptions) (image.Image, error) {
	c.calls++
	c.opts = opts
	c.seenWidth, _ = surface.InlineWidth(ctx)
	scroll, _ := surface.ScrollOffset(ctx)
	c.seenTop = scroll.Y
	if c.panicMsg != "" {
		panic(c.panicMsg)
	}
	if c.err != nil {
		return nil, c.err
	}
	return image.NewNRGBA(image.Rect(0, 0, int(float64(opts.WidthPx)*opts.Scale), c.height)), nil
}

type recordingWriter struct {
	clips bool
	err   error
	docs  []PageDocument
}

func (w *recordingWriter) Write(_ context.Context, out io.Writer, doc PageDocument) error {
	w.docs = append(w.docs, doc)
	if w.err != nil {
		return w.err
	}
	_, err := out.Write([]byte("%PDF-1.3\n"))
	return err
}

func (w *recordingWriter) ClipsToPage() bool { return w.clips }

func newTestExporter(capturer Capturer, writer DocumentWriter) *Exporter {
	exporter := NewExporter(capturer, writer)
	exporter.Store = NewMemoryStore()
	return exporter
}

func TestExporter_PinsLayoutDuringCaptureAndRestores(t *testing.T) {
	surface := &fakeSurface{width: "50%", scroll: ScrollOffset{Y: 120}}
	capturer := &heightCapturer{height: 3000}
	writer := &recordingWriter{}
	exporter := newTestExporter(capturer, writer)

	var states []ExportState
	exporter.Observer = func(_ context.Context, state ExportState) { states = append(states, state) }

	result, err := exporter.Export(context.Background(), surface, ExportRequest{ID: "exp-1", FileName: "report"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if capturer.seenWidth != "794px" {
		t.Fatalf("expected surface pinned to 794px during capture, got %q", capturer.seenWidth)
	}
	if capturer.seenTop != 0 {
		t.Fatalf("expected surface scrolled to origin during capture, got %f", capturer.seenTop)
	}
	if capturer.opts.WidthPx != 794 || capturer.opts.Scale != DefaultCaptureScale {
		t.Fatalf("unexpected capture options %+v", capturer.opts)
	}

	width, scroll := surface.state()
	if width != "50%" || scroll.Y != 120 {
		t.Fatalf("expected surface restored, got width %q scroll %+v", width, scroll)
	}

	if result.Pages != 2 || result.FileName != "report.pdf" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Artifact == nil || result.Artifact.Key != "exp-1/report.pdf" {
		t.Fatalf("expected stored artifact, got %+v", result.Artifact)
	}
	if result.Bitmap.WidthPx != 1588 || result.Bitmap.HeightPx != 3000 {
		t.Fatalf("unexpected bitmap info %+v", result.Bitmap)
	}

	doc := writer.docs[0]
	if doc.Size != (PageSize{WidthMM: 210, HeightMM: 297}) {
		t.Fatalf("expected A4 page size, got %+v", doc.Size)
	}
	for i, page := range doc.Pages {
		if len(page.Placements) != 1 {
			t.Fatalf("page %d: expected one placement, got %d", i, len(page.Placements))
		}
		placement := page.Placements[0]
		if placement.X != 0 || placement.Y != 0 || placement.WidthMM != 210 {
			t.Fatalf("page %d: unexpected placement %+v", i, placement)
		}
		if placement.Image.Type != "JPG" {
			t.Fatalf("page %d: expected jpeg, got %s", i, placement.Image.Type)
		}
	}

	want := []ExportState{StateNormalizing, StateCapturing, StateSlicing, StateWriting, StateSaved, StateRestored}
	if len(states) != len(want) {
		t.Fatalf("expected states %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("expected states %v, got %v", want, states)
		}
	}
}

func TestExporter_LandscapeTargetWidth(t *testing.T) {
	surface := &fakeSurface{}
	capturer := &heightCapturer{height: 100}
	exporter := newTestExporter(capturer, &recordingWriter{})

	_, err := exporter.Export(context.Background(), surface, ExportRequest{
		Format: PageFormatConfig{PaperSize: PaperA4, Orientation: OrientationLandscape},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if capturer.opts.WidthPx != 1123 || capturer.seenWidth != "1123px" {
		t.Fatalf("expected 1123px landscape width, got %d / %q", capturer.opts.WidthPx, capturer.seenWidth)
	}
}

func TestExporter_RestoresAfterCaptureFailure(t *testing.T) {
	surface := &fakeSurface{width: "", scroll: ScrollOffset{X: 4, Y: 40}}
	capturer := &heightCapturer{err: errors.New("tainted canvas")}
	store := NewMemoryStore()
	exporter := NewExporter(capturer, &recordingWriter{})
	exporter.Store = store

	var states []ExportState
	exporter.Observer = func(_ context.Context, state ExportState) { states = append(states, state) }

	_, err := exporter.Export(context.Background(), surface, ExportRequest{})
	if KindFromError(err) != KindCapture {
		t.Fatalf("expected capture error, got %v", err)
	}
	if !IsExportFailure(err) {
		t.Fatalf("expected export failure family")
	}

	width, scroll := surface.state()
	if width != "" || scroll != (ScrollOffset{X: 4, Y: 40}) {
		t.Fatalf("expected surface restored, got width %q scroll %+v", width, scroll)
	}
	if len(store.Keys()) != 0 {
		t.Fatalf("expected no artifact after failure, got %v", store.Keys())
	}
	if states[len(states)-2] != StateFailed || states[len(states)-1] != StateRestored {
		t.Fatalf("expected failed then restored, got %v", states)
	}
}

func TestExporter_RestoresOnPanic(t *testing.T) {
	surface := &fakeSurface{width: "900px", scroll: ScrollOffset{Y: 10}}
	exporter := newTestExporter(&heightCapturer{panicMsg: "renderer crashed"}, &recordingWriter{})

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_, _ = exporter.Export(context.Background(), surface, ExportRequest{})
	}()

	width, scroll := surface.state()
	if width != "900px" || scroll.Y != 10 {
		t.Fatalf("expected surface restored after panic, got width %q scroll %+v", width, scroll)
	}
}

func TestExporter_SurfaceUnavailableLeavesSurfaceUntouched(t *testing.T) {
	surface := &fakeSurface{accessErr: errors.New("no window")}
	capturer := &heightCapturer{height: 10}
	exporter := newTestExporter(capturer, &recordingWriter{})

	_, err := exporter.Export(context.Background(), surface, ExportRequest{})
	if KindFromError(err) != KindSurfaceUnavailable {
		t.Fatalf("expected surface unavailable, got %v", err)
	}
	if surface.writes != 0 || capturer.calls != 0 {
		t.Fatalf("expected no mutation and no capture, got %d writes %d captures", surface.writes, capturer.calls)
	}

	if _, err := exporter.Export(context.Background(), nil, ExportRequest{}); KindFromError(err) != KindSurfaceUnavailable {
		t.Fatalf("expected surface unavailable for nil surface, got %v", err)
	}
}

func TestExporter_InvalidFormatLeavesSurfaceUntouched(t *testing.T) {
	surface := &fakeSurface{}
	exporter := newTestExporter(&heightCapturer{height: 10}, &recordingWriter{})

	_, err := exporter.Export(context.Background(), surface, ExportRequest{Format: PageFormatConfig{PaperSize: "a3"}})
	if KindFromError(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if surface.writes != 0 {
		t.Fatalf("expected no surface writes, got %d", surface.writes)
	}
}

func TestExporter_IsRepeatable(t *testing.T) {
	surface := &fakeSurface{width: "70%"}
	writer := &recordingWriter{}
	exporter := newTestExporter(&heightCapturer{height: 5000}, writer)

	first, err := exporter.Export(context.Background(), surface, ExportRequest{ID: "a"})
	if err != nil {
		t.Fatalf("first export: %v", err)
	}
	second, err := exporter.Export(context.Background(), surface, ExportRequest{ID: "b"})
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	if first.Pages != second.Pages || first.Bitmap != second.Bitmap {
		t.Fatalf("expected identical geometry, got %+v and %+v", first, second)
	}
	for i := range writer.docs[0].Pages {
		a := writer.docs[0].Pages[i].Placements[0]
		b := writer.docs[1].Pages[i].Placements[0]
		if !bytes.Equal(a.Image.Data, b.Image.Data) || a.HeightMM != b.HeightMM {
			t.Fatalf("page %d differs between exports", i)
		}
	}
	if width, _ := surface.state(); width != "70%" {
		t.Fatalf("expected width restored after both exports, got %q", width)
	}
}

func TestExporter_EmptyDocumentProducesOneBlankPage(t *testing.T) {
	writer := &recordingWriter{}
	exporter := newTestExporter(&heightCapturer{height: 0}, writer)

	result, err := exporter.Export(context.Background(), &fakeSurface{}, ExportRequest{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.Pages != 1 || len(writer.docs[0].Pages[0].Placements) != 0 {
		t.Fatalf("expected one blank page, got %+v", writer.docs[0].Pages)
	}
	if result.FileName != DefaultFileName {
		t.Fatalf("expected default file name, got %q", result.FileName)
	}
}

func TestExporter_ReplaceStrategyRequiresClipping(t *testing.T) {
	clipping := &recordingWriter{clips: true}
	exporter := newTestExporter(&heightCapturer{height: 5000}, clipping)
	exporter.Strategy = SliceReplace

	if _, err := exporter.Export(context.Background(), &fakeSurface{}, ExportRequest{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	pages := clipping.docs[0].Pages
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	for i, page := range pages {
		placement := page.Placements[0]
		if placement.Image != pages[0].Placements[0].Image {
			t.Fatalf("page %d: expected the full bitmap to be shared", i)
		}
		if want := -float64(i) * 297; placement.Y != want {
			t.Fatalf("page %d: expected offset %f, got %f", i, want, placement.Y)
		}
	}

	unclipped := &recordingWriter{}
	exporter = newTestExporter(&heightCapturer{height: 5000}, unclipped)
	exporter.Strategy = SliceReplace
	if _, err := exporter.Export(context.Background(), &fakeSurface{}, ExportRequest{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	for i, page := range unclipped.docs[0].Pages {
		if page.Placements[0].Y != 0 {
			t.Fatalf("page %d: expected cropped band at offset 0, got %f", i, page.Placements[0].Y)
		}
	}
}

func TestExporter_WriteFailureStoresNothing(t *testing.T) {
	surface := &fakeSurface{width: "1px"}
	store := NewMemoryStore()
	exporter := NewExporter(&heightCapturer{height: 100}, &recordingWriter{err: errors.New("boom")})
	exporter.Store = store

	_, err := exporter.Export(context.Background(), surface, ExportRequest{})
	if KindFromError(err) != KindWrite {
		t.Fatalf("expected write error, got %v", err)
	}
	if len(store.Keys()) != 0 {
		t.Fatalf("expected no artifact, got %v", store.Keys())
	}
	if width, _ := surface.state(); width != "1px" {
		t.Fatalf("expected width restored, got %q", width)
	}
}

func TestExporter_RestoreFailureSurfaces(t *testing.T) {
	surface := &fakeSurface{width: "auto", failRestore: true}
	exporter := newTestExporter(&heightCapturer{height: 100}, &recordingWriter{})

	_, err := exporter.Export(context.Background(), surface, ExportRequest{})
	if KindFromError(err) != KindInternal {
		t.Fatalf("expected internal restore error, got %v", err)
	}

	exporter.Capturer = &heightCapturer{err: errors.New("tainted")}
	_, err = exporter.Export(context.Background(), surface, ExportRequest{})
	if KindFromError(err) != KindCapture {
		t.Fatalf("expected primary capture error to win, got %v", err)
	}
}

func TestExporter_WritesToOutput(t *testing.T) {
	var out bytes.Buffer
	exporter := NewExporter(&heightCapturer{height: 100}, &recordingWriter{})

	result, err := exporter.Export(context.Background(), &fakeSurface{}, ExportRequest{Output: &out})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.Artifact != nil {
		t.Fatalf("expected no artifact without a store")
	}
	if !bytes.HasPrefix(out.Bytes(), []byte("%PDF")) || int64(out.Len()) != result.Bytes {
		t.Fatalf("unexpected output %q", out.String())
	}

	if _, err := exporter.Export(context.Background(), &fakeSurface{}, ExportRequest{}); KindFromError(err) != KindValidation {
		t.Fatalf("expected validation error without any sink, got %v", err)
	}
}
