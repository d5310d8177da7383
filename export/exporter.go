package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"
)

// DefaultCaptureScale renders captures at twice the CSS pixel density.
const DefaultCaptureScale = 2.0

// StateObserver receives pipeline state transitions.
type StateObserver func(ctx context.Context, state ExportState)

// Exporter turns a live surface into a paginated PDF.
type Exporter struct {
	Capturer    Capturer
	Writer      DocumentWriter
	Store       ArtifactStore
	Density     Density
	Scale       float64
	JPEGQuality int
	Strategy    SliceStrategy
	Background  string
	// Transforms run on the clone after the built-in presentation fixups.
	Transforms []CloneTransform
	// MaxDuration bounds a single export; zero means no limit.
	MaxDuration time.Duration
	Logger      Logger
	Observer    StateObserver
	Now         func() time.Time
}

// NewExporter creates an exporter with default capture settings.
func NewExporter(capturer Capturer, writer DocumentWriter) *Exporter {
	return &Exporter{
		Capturer:    capturer,
		Writer:      writer,
		Density:     DefaultDensity(),
		Scale:       DefaultCaptureScale,
		JPEGQuality: DefaultJPEGQuality,
		Strategy:    SliceCrop,
		Background:  DefaultBackground,
		Logger:      NopLogger{},
		Now:         time.Now,
	}
}

type exportRun struct {
	req        ExportRequest
	page       PageSize
	widthPx    int
	fileName   string
	strategy   SliceStrategy
	background color.Color
}

// Export captures surface and writes it as a PDF. The surface layout is pinned
// to the page width for the duration of the call and restored afterwards,
// whether the export succeeds, fails or panics.
func (e *Exporter) Export(ctx context.Context, surface Surface, req ExportRequest) (result ExportResult, err error) {
	if e == nil {
		return ExportResult{}, NewError(KindInternal, "exporter is nil", nil)
	}
	e.applyDefaults()

	run, err := e.prepare(ctx, surface, req)
	if err != nil {
		e.Logger.Errorf("export %s rejected: %v", req.ID, err)
		return ExportResult{}, err
	}

	ctx, cancel := applyMaxDuration(ctx, e.Now, e.MaxDuration)
	if cancel != nil {
		defer cancel()
	}

	normalizer := NewLayoutNormalizer(e.Density)
	e.transition(ctx, StateNormalizing)
	snapshot, mutated, normErr := normalizer.Normalize(ctx, surface, run.widthPx)
	if mutated {
		defer func() {
			restoreCtx := context.WithoutCancel(ctx)
			if restoreErr := normalizer.Restore(restoreCtx, surface, snapshot); restoreErr != nil {
				e.Logger.Errorf("export %s: restore layout: %v", req.ID, restoreErr)
				if err == nil {
					result = ExportResult{}
					err = restoreErr
				} else {
					err = errors.Join(err, restoreErr)
				}
			}
			e.transition(restoreCtx, StateRestored)
		}()
	}
	if normErr != nil {
		e.transition(ctx, StateFailed)
		e.Logger.Errorf("export %s: normalize layout: %v", req.ID, normErr)
		return ExportResult{}, normErr
	}

	result, err = e.run(ctx, surface, run)
	if err != nil {
		e.transition(ctx, StateFailed)
		e.Logger.Errorf("export %s failed (%s): %v", req.ID, KindFromError(err), err)
		return ExportResult{}, err
	}
	e.transition(ctx, StateSaved)
	e.Logger.Infof("export %s saved %s: %d pages, %d bytes", req.ID, result.FileName, result.Pages, result.Bytes)
	return result, nil
}

func (e *Exporter) applyDefaults() {
	if e.Logger == nil {
		e.Logger = NopLogger{}
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.Scale <= 0 {
		e.Scale = DefaultCaptureScale
	}
	if e.JPEGQuality == 0 {
		e.JPEGQuality = DefaultJPEGQuality
	}
	if e.Strategy == "" {
		e.Strategy = SliceCrop
	}
	if e.Background == "" {
		e.Background = DefaultBackground
	}
}

// prepare validates everything that can be checked without touching the
// surface layout.
func (e *Exporter) prepare(ctx context.Context, surface Surface, req ExportRequest) (exportRun, error) {
	if surface == nil {
		return exportRun{}, NewError(KindSurfaceUnavailable, "surface not accessible", nil)
	}
	if err := surface.Accessible(ctx); err != nil {
		return exportRun{}, wrapKind(KindSurfaceUnavailable, "surface not accessible", err)
	}
	if e.Capturer == nil {
		return exportRun{}, NewError(KindNotImpl, "capturer not configured", nil)
	}
	if e.Writer == nil {
		return exportRun{}, NewError(KindNotImpl, "document writer not configured", nil)
	}
	if e.Store == nil && req.Output == nil {
		return exportRun{}, NewError(KindValidation, "artifact store or output writer is required", nil)
	}
	if e.JPEGQuality < 1 || e.JPEGQuality > 100 {
		return exportRun{}, NewError(KindValidation, fmt.Sprintf("jpeg quality must be between 1 and 100, got %d", e.JPEGQuality), nil)
	}

	page, err := PageDimensions(req.Format)
	if err != nil {
		return exportRun{}, err
	}
	bg, err := ParseHexColor(e.Background)
	if err != nil {
		return exportRun{}, err
	}

	strategy := e.Strategy
	switch strategy {
	case SliceCrop:
	case SliceReplace:
		if !e.Writer.ClipsToPage() {
			e.Logger.Debugf("export %s: writer does not clip to page, using crop slicing", req.ID)
			strategy = SliceCrop
		}
	default:
		return exportRun{}, NewError(KindValidation, fmt.Sprintf("unknown slice strategy %q", strategy), nil)
	}

	req.Format = NormalizeFormat(req.Format)
	return exportRun{
		req:        req,
		page:       page,
		widthPx:    NewLayoutNormalizer(e.Density).ComputeTargetWidthPx(page.WidthMM),
		fileName:   EnsurePDFExtension(req.FileName),
		strategy:   strategy,
		background: bg,
	}, nil
}

func (e *Exporter) run(ctx context.Context, surface Surface, run exportRun) (ExportResult, error) {
	transforms := append([]CloneTransform{PrepareClone(run.widthPx)}, e.Transforms...)

	e.transition(ctx, StateCapturing)
	bitmap, err := e.Capturer.Capture(ctx, surface, CaptureOptions{
		WidthPx:    run.widthPx,
		Scale:      e.Scale,
		Background: e.Background,
		Transform:  ChainTransforms(transforms...),
	})
	if err != nil {
		return ExportResult{}, wrapKind(KindCapture, "capture surface", err)
	}
	if bitmap == nil {
		return ExportResult{}, NewError(KindCapture, "capture returned no bitmap", nil)
	}
	if err := ctx.Err(); err != nil {
		return ExportResult{}, wrapKind(KindCanceled, "export interrupted", err)
	}

	bounds := bitmap.Bounds()
	flat := Flatten(bitmap, run.background)
	e.Logger.Debugf("export %s: captured %dx%d bitmap", run.req.ID, bounds.Dx(), bounds.Dy())

	e.transition(ctx, StateSlicing)
	plan, err := PlanPages(run.page, bounds.Dx(), bounds.Dy())
	if err != nil {
		return ExportResult{}, err
	}
	doc, err := e.buildDocument(plan, flat, run)
	if err != nil {
		return ExportResult{}, err
	}

	e.transition(ctx, StateWriting)
	var buf bytes.Buffer
	if err := e.Writer.Write(ctx, &buf, doc); err != nil {
		return ExportResult{}, wrapKind(KindWrite, "write pdf", err)
	}

	result := ExportResult{
		ID:       run.req.ID,
		FileName: run.fileName,
		PageSize: run.page,
		Pages:    len(doc.Pages),
		Bytes:    int64(buf.Len()),
		Bitmap: BitmapInfo{
			WidthPx:  plan.BitmapWidthPx,
			HeightPx: plan.BitmapHeightPx,
			HeightMM: plan.ImageHeightMM,
		},
	}

	if e.Store != nil {
		ref, err := e.Store.Put(ctx, artifactKey(run.req.ID, run.fileName), bytes.NewReader(buf.Bytes()), ArtifactMeta{
			ContentType: "application/pdf",
			Size:        int64(buf.Len()),
			Filename:    run.fileName,
			Pages:       len(doc.Pages),
			CreatedAt:   e.Now(),
		})
		if err != nil {
			return ExportResult{}, wrapKind(KindWrite, "store pdf", err)
		}
		result.Artifact = &ref
	}
	if run.req.Output != nil {
		if _, err := run.req.Output.Write(buf.Bytes()); err != nil {
			return ExportResult{}, wrapKind(KindWrite, "write output", err)
		}
	}
	return result, nil
}

// buildDocument lays the bitmap out on pages. Crop slicing embeds one band per
// page; replace slicing embeds the whole bitmap once and shifts it on each page.
func (e *Exporter) buildDocument(plan PagePlan, flat *image.NRGBA, run exportRun) (PageDocument, error) {
	doc := PageDocument{
		Title: run.fileName,
		Size:  plan.Page,
		Pages: make([]Page, 0, len(plan.Slices)),
	}

	if run.strategy == SliceReplace {
		var full *EncodedImage
		if plan.BitmapHeightPx > 0 {
			encoded, err := EncodeJPEG("capture", flat, e.JPEGQuality)
			if err != nil {
				return PageDocument{}, err
			}
			full = encoded
		}
		for _, slice := range plan.Slices {
			page := Page{}
			if full != nil {
				page.Placements = []Placement{{
					Image:    full,
					Y:        slice.OffsetMM,
					WidthMM:  plan.Page.WidthMM,
					HeightMM: plan.ImageHeightMM,
				}}
			}
			doc.Pages = append(doc.Pages, page)
		}
		return doc, nil
	}

	for _, slice := range plan.Slices {
		page := Page{}
		if slice.BottomPx > slice.TopPx {
			band := CropBand(flat, slice.TopPx, slice.BottomPx)
			encoded, err := EncodeJPEG(fmt.Sprintf("page-%d", slice.Index+1), band, e.JPEGQuality)
			if err != nil {
				return PageDocument{}, err
			}
			page.Placements = []Placement{{
				Image:    encoded,
				WidthMM:  plan.Page.WidthMM,
				HeightMM: slice.HeightMM,
			}}
		}
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}

func (e *Exporter) transition(ctx context.Context, state ExportState) {
	e.Logger.Debugf("export state: %s", state)
	if e.Observer != nil {
		e.Observer(ctx, state)
	}
}

func artifactKey(id, fileName string) string {
	if id == "" {
		return fileName
	}
	return id + "/" + fileName
}

func applyMaxDuration(ctx context.Context, now func() time.Time, limit time.Duration) (context.Context, context.CancelFunc) {
	if limit <= 0 {
		return ctx, nil
	}
	deadline := now().Add(limit)
	if existing, ok := ctx.Deadline(); ok && existing.Before(deadline) {
		return ctx, nil
	}
	return context.WithDeadline(ctx, deadline)
}
