package export

import (
	"strconv"

	"golang.org/x/net/html"
)

// PathSnapshot is the computed stroke/fill state of one path primitive.
type PathSnapshot struct {
	Fill        string `json:"fill"`
	Stroke      string `json:"stroke"`
	StrokeWidth string `json:"strokeWidth"`
}

// VectorSnapshot is the on-screen state of one svg element as read from the
// live document. Paths follows the document order of descendant path elements.
type VectorSnapshot struct {
	Width       float64        `json:"width"`
	Height      float64        `json:"height"`
	Fill        string         `json:"fill"`
	Stroke      string         `json:"stroke"`
	StrokeWidth string         `json:"strokeWidth"`
	Paths       []PathSnapshot `json:"paths"`
}

type nodeStyle struct {
	width  float64
	height float64
	props  map[string]string
}

// SnapshotStyles resolves styles for a parsed clone from snapshots taken on the
// live document, pairing svg and path elements by document order.
type SnapshotStyles struct {
	nodes map[*html.Node]nodeStyle
}

// NewSnapshotStyles pairs snapshots with the svg elements under root. Extra
// snapshots or elements are ignored.
func NewSnapshotStyles(root *html.Node, snapshots []VectorSnapshot) *SnapshotStyles {
	styles := &SnapshotStyles{nodes: make(map[*html.Node]nodeStyle)}
	if root == nil {
		return styles
	}
	svgs := findAll(root, isElement("svg"))
	for i, svg := range svgs {
		if i >= len(snapshots) {
			break
		}
		snap := snapshots[i]
		styles.nodes[svg] = nodeStyle{
			width:  snap.Width,
			height: snap.Height,
			props: map[string]string{
				"fill":         snap.Fill,
				"stroke":       snap.Stroke,
				"stroke-width": snap.StrokeWidth,
			},
		}
		paths := findAll(svg, isElement("path"))
		for j, path := range paths {
			if j >= len(snap.Paths) {
				break
			}
			styles.nodes[path] = nodeStyle{
				props: map[string]string{
					"fill":         snap.Paths[j].Fill,
					"stroke":       snap.Paths[j].Stroke,
					"stroke-width": snap.Paths[j].StrokeWidth,
				},
			}
		}
	}
	return styles
}

func (s *SnapshotStyles) BoundingBox(n *html.Node) (float64, float64) {
	if s == nil {
		return 0, 0
	}
	style := s.nodes[n]
	return style.width, style.height
}

func (s *SnapshotStyles) ComputedStyle(n *html.Node, property string) string {
	if s == nil {
		return ""
	}
	return s.nodes[n].props[property]
}

// FixVectorGraphics hoists layout and computed paint of every svg element into
// explicit attributes, since rasterizers read attributes and not the cascade.
// It must only be run on a cloned document. Elements with no known geometry are
// left untouched.
func FixVectorGraphics(doc *Document) {
	if doc == nil {
		return
	}
	styles := doc.styles()

	for _, svg := range doc.VectorGraphics() {
		width, height := styles.BoundingBox(svg)
		if width > 0 && height > 0 {
			if getAttr(svg, "width") == "" {
				setAttr(svg, "width", formatLength(width))
			}
			if getAttr(svg, "height") == "" {
				setAttr(svg, "height", formatLength(height))
			}
		}

		if fill := styles.ComputedStyle(svg, "fill"); getAttr(svg, "fill") == "" && isPaint(fill) {
			setAttr(svg, "fill", fill)
		}
		if stroke := styles.ComputedStyle(svg, "stroke"); getAttr(svg, "stroke") == "" && isPaint(stroke) {
			setAttr(svg, "stroke", stroke)
		}

		for _, path := range findAll(svg, isElement("path")) {
			if fill := styles.ComputedStyle(path, "fill"); isPaint(fill) {
				setAttr(path, "fill", fill)
			}
			if stroke := styles.ComputedStyle(path, "stroke"); isPaint(stroke) {
				setAttr(path, "stroke", stroke)
			}
			if strokeWidth := styles.ComputedStyle(path, "stroke-width"); strokeWidth != "" && strokeWidth != "0px" {
				setAttr(path, "stroke-width", strokeWidth)
			}
		}
	}
}

func isPaint(value string) bool {
	return value != "" && value != "none"
}

func formatLength(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
