package export

import (
	"golang.org/x/net/html"
)

// NoPrintClass marks elements hidden from captures.
const NoPrintClass = "no-print"

// PrepareClone returns the presentation-only transform applied to the cloned
// document before rasterization: pin the body width, let overflow show, hide
// no-print elements, hoist svg styles, and force images visible.
func PrepareClone(targetWidthPx int) CloneTransform {
	return func(doc *Document) error {
		if doc == nil || doc.Root == nil {
			return NewError(KindCapture, "document clone is empty", nil)
		}

		if body := doc.Body(); body != nil {
			setStyleProperty(body, "width", FormatPixels(targetWidthPx))
			setStyleProperty(body, "overflow", "visible")
		}

		for _, node := range findAll(doc.Root, func(n *html.Node) bool {
			return n.Type == html.ElementNode && hasClass(n, NoPrintClass)
		}) {
			setStyleProperty(node, "display", "none")
		}

		FixVectorGraphics(doc)

		for _, img := range findAll(doc.Root, isElement("img")) {
			setStyleProperty(img, "opacity", "1")
			setStyleProperty(img, "visibility", "visible")
		}
		return nil
	}
}

// ChainTransforms runs transforms in order, stopping on the first error.
func ChainTransforms(transforms ...CloneTransform) CloneTransform {
	return func(doc *Document) error {
		for _, transform := range transforms {
			if transform == nil {
				continue
			}
			if err := transform(doc); err != nil {
				return err
			}
		}
		return nil
	}
}
