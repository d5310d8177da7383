package export

import (
	"context"
	"image"
	"io"
	"time"
)

// PaperSize selects the PDF page dimensions.
type PaperSize string

const (
	PaperA4     PaperSize = "a4"
	PaperLetter PaperSize = "letter"
	PaperLegal  PaperSize = "legal"
)

// Orientation selects portrait or landscape page geometry.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// PageFormatConfig is the per-export page format. It is treated as immutable for
// the duration of one export.
type PageFormatConfig struct {
	PaperSize   PaperSize   `json:"paper_size"`
	Orientation Orientation `json:"orientation"`
	// MarginMM is validated and carried through but not applied to capture bounds.
	MarginMM float64 `json:"margin_mm"`
}

// PageSize is a page geometry in millimeters.
type PageSize struct {
	WidthMM  float64
	HeightMM float64
}

// ScrollOffset is a surface scroll position in CSS pixels.
type ScrollOffset struct {
	X float64
	Y float64
}

// Surface is a live, scriptable render surface borrowed for one export.
// Implementations own a document and a window; the exporter only touches the
// root element's inline width and the window scroll position.
type Surface interface {
	// Accessible reports whether the window/document pair can be reached.
	Accessible(ctx context.Context) error
	InlineWidth(ctx context.Context) (string, error)
	SetInlineWidth(ctx context.Context, value string) error
	ScrollOffset(ctx context.Context) (ScrollOffset, error)
	ScrollTo(ctx context.Context, offset ScrollOffset) error
}

// CloneTransform mutates a cloned document before rasterization. It must only
// touch the document it receives.
type CloneTransform func(doc *Document) error

// CaptureOptions configures a single capture.
type CaptureOptions struct {
	// WidthPx pins both the clone width and the window width used for media queries.
	WidthPx    int
	Scale      float64
	Background string
	Transform  CloneTransform
}

// Capturer rasterizes a surface into a single bitmap.
type Capturer interface {
	Capture(ctx context.Context, surface Surface, opts CaptureOptions) (image.Image, error)
}

// CapturerFunc adapts a function to a Capturer.
type CapturerFunc func(ctx context.Context, surface Surface, opts CaptureOptions) (image.Image, error)

func (f CapturerFunc) Capture(ctx context.Context, surface Surface, opts CaptureOptions) (image.Image, error) {
	if f == nil {
		return nil, NewError(KindNotImpl, "capturer func is nil", nil)
	}
	return f(ctx, surface, opts)
}

// EncodedImage is a compressed raster ready to be embedded in a page.
type EncodedImage struct {
	Name   string
	Type   string
	Data   []byte
	Width  int
	Height int
}

// Placement positions an image on a page, in millimeters from the top-left corner.
type Placement struct {
	Image    *EncodedImage
	X        float64
	Y        float64
	WidthMM  float64
	HeightMM float64
}

// Page is one PDF page.
type Page struct {
	Placements []Placement
}

// PageDocument is the ordered page sequence built by the exporter.
type PageDocument struct {
	Title string
	Size  PageSize
	Pages []Page
}

// DocumentWriter serializes a page document into PDF bytes.
type DocumentWriter interface {
	Write(ctx context.Context, w io.Writer, doc PageDocument) error
	// ClipsToPage reports whether content drawn outside a page is clipped to it.
	ClipsToPage() bool
}

// SliceStrategy selects how the capture bitmap is spread across pages.
type SliceStrategy string

const (
	// SliceCrop embeds one pre-cropped band per page.
	SliceCrop SliceStrategy = "crop"
	// SliceReplace embeds the full bitmap on every page at a shifted offset and
	// relies on page clipping.
	SliceReplace SliceStrategy = "replace"
)

// ExportState tracks the export pipeline.
type ExportState string

const (
	StateIdle        ExportState = "idle"
	StateNormalizing ExportState = "normalizing"
	StateCapturing   ExportState = "capturing"
	StateSlicing     ExportState = "slicing"
	StateWriting     ExportState = "writing"
	StateSaved       ExportState = "saved"
	StateFailed      ExportState = "failed"
	StateRestored    ExportState = "restored"

	// Record-only states used by the service and trackers.
	StateRunning   ExportState = "running"
	StateCompleted ExportState = "completed"
)

// ExportRequest captures a single export call.
type ExportRequest struct {
	// ID scopes the artifact key; the service assigns one per export.
	ID       string
	Format   PageFormatConfig
	FileName string
	// Output optionally receives the PDF bytes in addition to the artifact store.
	Output io.Writer
}

// BitmapInfo describes the capture bitmap.
type BitmapInfo struct {
	WidthPx  int
	HeightPx int
	HeightMM float64
}

// ExportResult captures a completed export.
type ExportResult struct {
	ID       string
	FileName string
	PageSize PageSize
	Pages    int
	Bytes    int64
	Bitmap   BitmapInfo
	Artifact *ArtifactRef
}

// ExportRecord is a history row for an export.
type ExportRecord struct {
	ID          string
	FileName    string
	Format      PageFormatConfig
	State       ExportState
	Pages       int
	Bytes       int64
	Error       string
	ErrorKind   ErrorKind
	Artifact    ArtifactRef
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// HistoryFilter filters tracker lists.
type HistoryFilter struct {
	State ExportState
	Since time.Time
	Until time.Time
	Limit int
}

// Tracker records export history.
type Tracker interface {
	Start(ctx context.Context, record ExportRecord) (string, error)
	SetState(ctx context.Context, id string, state ExportState) error
	Fail(ctx context.Context, id string, err error) error
	Complete(ctx context.Context, id string, result ExportResult) error
	Status(ctx context.Context, id string) (ExportRecord, error)
	List(ctx context.Context, filter HistoryFilter) ([]ExportRecord, error)
}

// ArtifactMeta captures stored artifact metadata.
type ArtifactMeta struct {
	ContentType string
	Size        int64
	Filename    string
	Pages       int
	CreatedAt   time.Time
}

// ArtifactRef references a stored artifact.
type ArtifactRef struct {
	Key  string
	Meta ArtifactMeta
}

// ArtifactStore persists finished PDFs. Put must be atomic from the caller's
// perspective: a failed Put leaves no partial artifact behind.
type ArtifactStore interface {
	Put(ctx context.Context, key string, r io.Reader, meta ArtifactMeta) (ArtifactRef, error)
	Open(ctx context.Context, key string) (io.ReadCloser, ArtifactMeta, error)
	Delete(ctx context.Context, key string) error
}

// Logger provides logging hooks.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger is a no-op logger.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
