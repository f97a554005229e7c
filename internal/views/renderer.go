// Package views renders the HTML pages. Templates are embedded into the binary.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anonto42/yatube/internal/middleware"
	"github.com/labstack/echo/v4"
)

//go:embed templates
var files embed.FS

var funcs = template.FuncMap{
	"formatDate": func(t time.Time) string {
		return t.Format("2 Jan 2006 15:04")
	},
	"truncate": func(s string, n int) string {
		if utf8.RuneCountInString(s) <= n {
			return s
		}
		return string([]rune(s)[:n]) + "…"
	},
}

// Renderer implements echo.Renderer. Every page is parsed together with the
// base layout and the shared partials into its own template set.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	root, err := fs.Sub(files, "templates")
	if err != nil {
		return nil, err
	}

	shared := []string{"base.html", "partials/post.html"}
	r := &Renderer{pages: map[string]*template.Template{}}

	err = fs.WalkDir(root, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".html") {
			return err
		}
		if path == "base.html" || strings.HasPrefix(path, "partials/") {
			return nil
		}
		t, err := template.New(path).Funcs(funcs).ParseFS(root, append(shared, path)...)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		r.pages[path] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Render executes the named page. Map data gets the current user added under
// "CurrentUser" and the form token under "CSRF".
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	switch m := data.(type) {
	case echo.Map:
		addRequestData(m, c)
	case map[string]interface{}:
		addRequestData(m, c)
	}
	return t.ExecuteTemplate(w, "base", data)
}

func addRequestData(m map[string]interface{}, c echo.Context) {
	if c == nil {
		return
	}
	if _, set := m["CurrentUser"]; !set {
		m["CurrentUser"] = middleware.CurrentUser(c)
	}
	if _, set := m["CSRF"]; !set {
		m["CSRF"] = middleware.CSRFToken(c)
	}
}

// Has reports whether a page with the given name exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}
