package sample

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"

	"github.com/flosch/pongo2/v6"
	gotemplate "github.com/goliatone/go-template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates renders the sample fragments with the go-template engine
// (pongo2, Django syntax).
type Templates struct {
	engine *gotemplate.Engine
}

// NewTemplates loads templates from files. A nil files uses the embedded
// set.
func NewTemplates(files fs.FS) (*Templates, error) {
	if files == nil {
		sub, err := fs.Sub(templateFS, "templates")
		if err != nil {
			return nil, fmt.Errorf("sample: templates: %w", err)
		}
		files = sub
	}
	engine, err := gotemplate.NewRenderer(
		gotemplate.WithFS(files),
		gotemplate.WithExtension(".html"),
	)
	if err != nil {
		return nil, fmt.Errorf("sample: templates: %w", err)
	}
	return &Templates{engine: engine}, nil
}

// Render executes the named template into w. Values pass through a JSON
// round trip, so numbers reach the template as floats; the context helpers
// below format ids as strings.
func (t *Templates) Render(w io.Writer, name string, data pongo2.Context) error {
	if t == nil || t.engine == nil {
		return errors.New("sample: templates not initialised")
	}
	if _, err := t.engine.RenderTemplate(name, map[string]any(data), w); err != nil {
		return fmt.Errorf("sample: render %q: %w", name, err)
	}
	return nil
}

func blogContext(b Blog) pongo2.Context {
	return pongo2.Context{"id": formatID(b.ID), "slug": b.Slug, "title": b.Title}
}

func postContext(p Post) pongo2.Context {
	return pongo2.Context{
		"id":         formatID(p.ID),
		"blog_id":    formatID(p.BlogID),
		"slug":       p.Slug,
		"title":      p.Title,
		"body":       p.Body,
		"publish":    p.Publish,
		"cover_name": p.CoverName,
		"cover_size": strconv.FormatInt(p.CoverSize, 10),
	}
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
