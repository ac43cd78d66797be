// Package web holds the server-rendered pages: the access-denied
// interstitial and the generic error page. Everything else is JSON.
package web

import (
	"embed"
	"html/template"
	"path"
	"time"

	"github.com/gin-contrib/multitemplate"
)

//go:embed templates
var templatesFS embed.FS

var funcMap = template.FuncMap{
	"year": func() int { return time.Now().Year() },
}

// Renderer builds the gin HTML renderer. Each view is parsed together with
// the base layout under the view's own name.
func Renderer() multitemplate.Renderer {
	r := multitemplate.NewRenderer()
	for _, view := range []string{"denied.html", "error.html"} {
		tmpl := template.Must(template.New(view).Funcs(funcMap).ParseFS(templatesFS,
			"templates/layouts/base.html",
			path.Join("templates/views", view),
		))
		r.Add(view, tmpl)
	}
	return r
}
