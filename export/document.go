package export

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// StyleResolver reports what the cascade and layout produced for an element of
// the live document. Unknown elements return zero sizes and empty values.
type StyleResolver interface {
	BoundingBox(n *html.Node) (width, height float64)
	ComputedStyle(n *html.Node, property string) string
}

// Document is a cloned, mutable copy of a surface document.
type Document struct {
	Root   *html.Node
	Styles StyleResolver
}

// ParseDocument parses serialized markup into a clone document.
func ParseDocument(markup string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, NewError(KindCapture, "parse document clone", err)
	}
	return &Document{Root: root, Styles: emptyStyles{}}, nil
}

// Body returns the document body, or nil when the tree has none.
func (d *Document) Body() *html.Node {
	if d == nil || d.Root == nil {
		return nil
	}
	return findFirst(d.Root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Body
	})
}

// VectorGraphics returns every embedded svg element in document order.
func (d *Document) VectorGraphics() []*html.Node {
	if d == nil || d.Root == nil {
		return nil
	}
	return findAll(d.Root, isElement("svg"))
}

// Render serializes the document back to markup.
func (d *Document) Render() (string, error) {
	if d == nil || d.Root == nil {
		return "", NewError(KindCapture, "document clone is empty", nil)
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, d.Root); err != nil {
		return "", NewError(KindCapture, "render document clone", err)
	}
	return buf.String(), nil
}

// RemoveElements detaches every element with the given tag name and reports how
// many were removed.
func (d *Document) RemoveElements(name string) int {
	if d == nil || d.Root == nil {
		return 0
	}
	matches := findAll(d.Root, isElement(name))
	for _, n := range matches {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return len(matches)
}

func (d *Document) styles() StyleResolver {
	if d == nil || d.Styles == nil {
		return emptyStyles{}
	}
	return d.Styles
}

type emptyStyles struct{}

func (emptyStyles) BoundingBox(*html.Node) (float64, float64) { return 0, 0 }
func (emptyStyles) ComputedStyle(*html.Node, string) string   { return "" }

func isElement(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && strings.EqualFold(n.Data, name)
	}
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	if match(root) {
		return root
	}
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if found := findFirst(child, match); found != nil {
			return found
		}
	}
	return nil
}

// findAll walks descendants of root (excluding root) in document order.
func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if match(child) {
				out = append(out, child)
			}
			walk(child)
		}
	}
	walk(root)
	return out
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Namespace == "" && strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, value string) {
	for i, attr := range n.Attr {
		if attr.Namespace == "" && strings.EqualFold(attr.Key, key) {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(getAttr(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

type styleDecl struct {
	name  string
	value string
}

// setStyleProperty sets one declaration in an element's inline style,
// replacing an existing declaration of the same property.
func setStyleProperty(n *html.Node, property, value string) {
	decls := parseInlineStyle(getAttr(n, "style"))
	replaced := false
	for i := range decls {
		if strings.EqualFold(decls[i].name, property) {
			decls[i].value = value
			replaced = true
		}
	}
	if !replaced {
		decls = append(decls, styleDecl{name: property, value: value})
	}

	parts := make([]string, 0, len(decls))
	for _, decl := range decls {
		parts = append(parts, decl.name+": "+decl.value)
	}
	setAttr(n, "style", strings.Join(parts, "; "))
}

func styleProperty(n *html.Node, property string) string {
	value := ""
	for _, decl := range parseInlineStyle(getAttr(n, "style")) {
		if strings.EqualFold(decl.name, property) {
			value = decl.value
		}
	}
	return value
}

// parseInlineStyle splits a style attribute on semicolons that are not inside
// parentheses or quotes, so data URLs survive.
func parseInlineStyle(style string) []styleDecl {
	var (
		decls []styleDecl
		depth int
		quote rune
		start int
	)
	flush := func(end int) {
		chunk := strings.TrimSpace(style[start:end])
		if chunk == "" {
			return
		}
		name, value, ok := strings.Cut(chunk, ":")
		if !ok {
			return
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		decls = append(decls, styleDecl{name: name, value: strings.TrimSpace(value)})
	}

	for i, r := range style {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case r == ';' && depth == 0:
			flush(i)
			start = i + 1
		}
	}
	flush(len(style))
	return decls
}
