package export

import (
	"context"
	"math"
	"strconv"
)

// DefaultPixelsPerInch is the CSS reference screen density.
const DefaultPixelsPerInch = 96.0

const mmPerInch = 25.4

// Density converts physical lengths into CSS pixels.
type Density struct {
	PixelsPerInch float64
}

// DefaultDensity returns the 96 px/inch density used for layout.
func DefaultDensity() Density {
	return Density{PixelsPerInch: DefaultPixelsPerInch}
}

func (d Density) ppi() float64 {
	if d.PixelsPerInch <= 0 {
		return DefaultPixelsPerInch
	}
	return d.PixelsPerInch
}

// MMToPixels converts millimeters to fractional pixels.
func (d Density) MMToPixels(mm float64) float64 {
	return mm * d.ppi() / mmPerInch
}

// LayoutSnapshot records the surface state a normalization overwrote.
type LayoutSnapshot struct {
	InlineWidth string
	Scroll      ScrollOffset
}

// LayoutNormalizer pins a surface to a deterministic layout width.
type LayoutNormalizer struct {
	Density Density
}

// NewLayoutNormalizer creates a normalizer for the given density.
func NewLayoutNormalizer(density Density) LayoutNormalizer {
	return LayoutNormalizer{Density: density}
}

// ComputeTargetWidthPx converts a page width to the pixel width used for both
// layout and capture, rounded to the nearest pixel.
func (n LayoutNormalizer) ComputeTargetWidthPx(pageWidthMM float64) int {
	return int(math.Round(n.Density.MMToPixels(pageWidthMM)))
}

// Normalize records the current inline width and scroll offset, sets the inline
// width to targetWidthPx and scrolls to the origin. The returned snapshot is
// valid even when an error is returned after the first mutation, so callers can
// always restore it.
func (n LayoutNormalizer) Normalize(ctx context.Context, surface Surface, targetWidthPx int) (LayoutSnapshot, bool, error) {
	if surface == nil {
		return LayoutSnapshot{}, false, NewError(KindSurfaceUnavailable, "surface not accessible", nil)
	}
	if targetWidthPx <= 0 {
		return LayoutSnapshot{}, false, NewError(KindValidation, "target width must be positive", nil)
	}

	width, err := surface.InlineWidth(ctx)
	if err != nil {
		return LayoutSnapshot{}, false, wrapKind(KindSurfaceUnavailable, "read inline width", err)
	}
	scroll, err := surface.ScrollOffset(ctx)
	if err != nil {
		return LayoutSnapshot{}, false, wrapKind(KindSurfaceUnavailable, "read scroll offset", err)
	}
	snapshot := LayoutSnapshot{InlineWidth: width, Scroll: scroll}

	if err := surface.SetInlineWidth(ctx, FormatPixels(targetWidthPx)); err != nil {
		return snapshot, true, wrapKind(KindSurfaceUnavailable, "set inline width", err)
	}
	if err := surface.ScrollTo(ctx, ScrollOffset{}); err != nil {
		return snapshot, true, wrapKind(KindSurfaceUnavailable, "reset scroll", err)
	}
	return snapshot, true, nil
}

// Restore writes a snapshot back to the surface. Both properties are attempted
// even if the first write fails.
func (n LayoutNormalizer) Restore(ctx context.Context, surface Surface, snapshot LayoutSnapshot) error {
	if surface == nil {
		return nil
	}
	widthErr := surface.SetInlineWidth(ctx, snapshot.InlineWidth)
	scrollErr := surface.ScrollTo(ctx, snapshot.Scroll)
	if widthErr != nil {
		return wrapKind(KindInternal, "restore inline width", widthErr)
	}
	if scrollErr != nil {
		return wrapKind(KindInternal, "restore scroll offset", scrollErr)
	}
	return nil
}

// FormatPixels renders a CSS pixel length.
func FormatPixels(px int) string {
	return strconv.Itoa(px) + "px"
}
