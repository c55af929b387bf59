// pages.go -- Embedded html/template pages.
//
// Each page is parsed together with layout.html into its own template set so
// every page can define "content" without clashing.
package board

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageNames lists every page under templates/ besides the layout.
var pageNames = []string{"home", "square", "detail", "new", "me", "admin", "error"}

// Pages holds one parsed template set per page.
type Pages struct {
	sets map[string]*template.Template
}

var pageFuncs = template.FuncMap{
	"date": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
	"year": func() int { return time.Now().Year() },
}

// NewPages parses all embedded templates. Fails on any parse error so a broken
// template stops startup instead of the first request.
func NewPages() (*Pages, error) {
	p := &Pages{sets: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(pageFuncs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parsing page %s: %w", name, err)
		}
		p.sets[name] = t
	}
	return p, nil
}

// Render executes page into a buffer, then writes it with status.
// Nothing is written when execution fails.
func (p *Pages) Render(w http.ResponseWriter, status int, page string, data any) error {
	t, ok := p.sets[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("rendering page %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
