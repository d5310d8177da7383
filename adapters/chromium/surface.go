package pdfchromium

import (
	"context"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-pdflow/export"
)

// Surface is a live Chromium tab implementing export.Surface.
type Surface struct {
	browser *Browser
	tabCtx  context.Context
	cancel  context.CancelFunc

	closeOnce sync.Once
}

var _ export.Surface = (*Surface)(nil)

// Accessible reports whether the tab still has a window and document.
func (s *Surface) Accessible(ctx context.Context) error {
	if s == nil || s.tabCtx == nil {
		return export.NewError(export.KindSurfaceUnavailable, "surface not accessible", nil)
	}
	if err := s.tabCtx.Err(); err != nil {
		return export.NewError(export.KindSurfaceUnavailable, "surface closed", err)
	}
	var ok bool
	if err := s.eval(ctx, accessibleScript, &ok); err != nil {
		return export.NewError(export.KindSurfaceUnavailable, "surface not accessible", err)
	}
	if !ok {
		return export.NewError(export.KindSurfaceUnavailable, "surface has no document", nil)
	}
	return nil
}

// InlineWidth returns the root element's inline style width.
func (s *Surface) InlineWidth(ctx context.Context) (string, error) {
	var width string
	if err := s.eval(ctx, inlineWidthScript, &width); err != nil {
		return "", err
	}
	return width, nil
}

// SetInlineWidth writes the root element's inline style width. An empty value
// removes the property.
func (s *Surface) SetInlineWidth(ctx context.Context, value string) error {
	var ok bool
	return s.eval(ctx, setInlineWidthScript(value), &ok)
}

// ScrollOffset returns the window scroll position.
func (s *Surface) ScrollOffset(ctx context.Context) (export.ScrollOffset, error) {
	var pos scrollPosition
	if err := s.eval(ctx, scrollOffsetScript, &pos); err != nil {
		return export.ScrollOffset{}, err
	}
	return export.ScrollOffset{X: pos.X, Y: pos.Y}, nil
}

// ScrollTo scrolls the window.
func (s *Surface) ScrollTo(ctx context.Context, offset export.ScrollOffset) error {
	var ok bool
	return s.eval(ctx, scrollToScript(offset.X, offset.Y), &ok)
}

// Serialize returns the current document markup including the doctype.
func (s *Surface) Serialize(ctx context.Context) (string, error) {
	var markup string
	if err := s.eval(ctx, serializeScript, &markup); err != nil {
		return "", err
	}
	return markup, nil
}

// VectorSnapshots reads computed styles and boxes of every svg element.
func (s *Surface) VectorSnapshots(ctx context.Context) ([]export.VectorSnapshot, error) {
	var snapshots []export.VectorSnapshot
	if err := s.eval(ctx, vectorSnapshotScript, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Close closes the tab.
func (s *Surface) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
	return nil
}

func (s *Surface) eval(ctx context.Context, script string, res any) error {
	if s == nil || s.browser == nil || s.tabCtx == nil {
		return export.NewError(export.KindSurfaceUnavailable, "surface not accessible", nil)
	}
	return s.browser.run(ctx, s.tabCtx, chromedp.Evaluate(script, res))
}
