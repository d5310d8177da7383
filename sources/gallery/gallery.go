// Package gallery renders the built-in document templates with pongo2.
package gallery

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/flosch/pongo2/v6"
	"github.com/goliatone/go-pdflow/export"
)

//go:embed templates/*.html templates/styles.css
var templateFS embed.FS

// Template describes one gallery entry.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type entry struct {
	Template
	tpl  *pongo2.Template
	data pongo2.Context
}

// Gallery holds compiled templates keyed by ID.
type Gallery struct {
	styles  string
	entries map[string]entry
	order   []string
}

// New compiles the embedded templates.
func New() (*Gallery, error) {
	styles, err := templateFS.ReadFile("templates/styles.css")
	if err != nil {
		return nil, export.NewError(export.KindInternal, "read gallery styles", err)
	}

	g := &Gallery{
		styles:  string(styles),
		entries: make(map[string]entry, len(catalog)),
	}
	for _, def := range catalog {
		source, err := templateFS.ReadFile("templates/" + def.ID + ".html")
		if err != nil {
			return nil, export.NewError(export.KindInternal, fmt.Sprintf("read template %q", def.ID), err)
		}
		tpl, err := pongo2.FromBytes(source)
		if err != nil {
			return nil, export.NewError(export.KindInternal, fmt.Sprintf("compile template %q", def.ID), err)
		}
		g.entries[def.ID] = entry{Template: def.Template, tpl: tpl, data: def.data}
		g.order = append(g.order, def.ID)
	}
	return g, nil
}

// List returns the available templates in gallery order.
func (g *Gallery) List() []Template {
	if g == nil {
		return nil
	}
	out := make([]Template, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.entries[id].Template)
	}
	return out
}

// Render executes a template with its canned data. Keys in overrides replace
// the top-level canned values.
func (g *Gallery) Render(id string, overrides map[string]any) (string, error) {
	if g == nil {
		return "", export.NewError(export.KindNotImpl, "gallery not configured", nil)
	}
	e, ok := g.entries[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return "", export.NewError(export.KindNotFound, fmt.Sprintf("template %q not found (available: %s)", id, strings.Join(g.IDs(), ", ")), nil)
	}

	ctx := pongo2.Context{}
	ctx.Update(e.data)
	ctx.Update(pongo2.Context(overrides))
	ctx["styles"] = g.styles

	out, err := e.tpl.Execute(ctx)
	if err != nil {
		return "", export.NewError(export.KindValidation, fmt.Sprintf("render template %q", e.ID), err)
	}
	return out, nil
}

// IDs returns the sorted template IDs.
func (g *Gallery) IDs() []string {
	if g == nil {
		return nil
	}
	ids := append([]string(nil), g.order...)
	sort.Strings(ids)
	return ids
}
