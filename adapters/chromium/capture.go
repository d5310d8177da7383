package pdfchromium

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-pdflow/export"
)

// maxCaptureHeightPx bounds a single screenshot; Chromium refuses larger
// textures.
const maxCaptureHeightPx = 16384 * 8

// Capturer rasterizes Chromium surfaces. The live document is serialized and
// transformed in Go, then rendered in a scratch tab at the requested width.
type Capturer struct {
	Browser *Browser
	Logger  export.Logger
}

var _ export.Capturer = (*Capturer)(nil)

// Capture implements export.Capturer.
func (c *Capturer) Capture(ctx context.Context, surface export.Surface, opts export.CaptureOptions) (image.Image, error) {
	if c == nil || c.Browser == nil {
		return nil, export.NewError(export.KindInternal, "chromium capturer is not configured", nil)
	}
	live, ok := surface.(*Surface)
	if !ok || live == nil {
		return nil, export.NewError(export.KindNotImpl, fmt.Sprintf("chromium capturer cannot capture %T", surface), nil)
	}
	if opts.WidthPx <= 0 {
		return nil, export.NewError(export.KindValidation, "capture width must be positive", nil)
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	logger := c.Logger
	if logger == nil {
		logger = export.NopLogger{}
	}

	markup, err := live.Serialize(ctx)
	if err != nil {
		return nil, export.NewError(export.KindCapture, "serialize document", err)
	}
	snapshots, err := live.VectorSnapshots(ctx)
	if err != nil {
		return nil, export.NewError(export.KindCapture, "snapshot vector styles", err)
	}

	clone, err := BuildClone(markup, snapshots, opts.Transform)
	if err != nil {
		return nil, err
	}
	logger.Debugf("chromium capture: clone %d bytes, %d svg snapshots", len(clone), len(snapshots))

	tabCtx, cancel, err := c.Browser.newTab()
	if err != nil {
		return nil, err
	}
	defer cancel()

	var settled bool
	var heightPx int64
	var shot []byte
	actions := []chromedp.Action{
		emulation.SetDeviceMetricsOverride(int64(opts.WidthPx), 1, 1, false),
	}
	actions = append(actions, c.Browser.loadActions(clone)...)
	actions = append(actions,
		chromedp.Evaluate(settleScript, &settled, awaitPromise),
		chromedp.Evaluate(contentHeightScript, &heightPx),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if heightPx <= 0 {
				return nil
			}
			if float64(heightPx)*scale > maxCaptureHeightPx {
				return export.NewError(export.KindCapture, fmt.Sprintf("document too tall to capture: %dpx", heightPx), nil)
			}
			var err error
			shot, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithCaptureBeyondViewport(true).
				WithFromSurface(true).
				WithClip(&page.Viewport{
					X:      0,
					Y:      0,
					Width:  float64(opts.WidthPx),
					Height: float64(heightPx),
					Scale:  scale,
				}).
				Do(ctx)
			return err
		}),
	)
	if err := c.Browser.run(ctx, tabCtx, actions...); err != nil {
		return nil, export.NewError(export.KindCapture, "render clone", err)
	}

	if heightPx <= 0 {
		width := int(math.Round(float64(opts.WidthPx) * scale))
		return image.NewNRGBA(image.Rect(0, 0, width, 0)), nil
	}
	img, err := png.Decode(bytes.NewReader(shot))
	if err != nil {
		return nil, export.NewError(export.KindCapture, "decode screenshot", err)
	}
	return img, nil
}

// BuildClone parses serialized markup, pairs it with the live vector snapshots
// and applies transform. Scripts are dropped so the clone cannot mutate itself.
func BuildClone(markup string, snapshots []export.VectorSnapshot, transform export.CloneTransform) (string, error) {
	doc, err := export.ParseDocument(markup)
	if err != nil {
		return "", err
	}
	doc.Styles = export.NewSnapshotStyles(doc.Root, snapshots)
	doc.RemoveElements("script")
	if transform != nil {
		if err := transform(doc); err != nil {
			return "", export.NewError(export.KindCapture, "transform document clone", err)
		}
	}
	return doc.Render()
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}
