// Package web embeds the HTML templates and static assets of the site.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

func FuncMap() template.FuncMap {
	return template.FuncMap{
		// selected reports whether an option id matches the submitted value
		"selected": func(id int64, value string) bool {
			return strconv.FormatInt(id, 10) == value
		},
		// pathEscape makes a name usable as a single path segment
		"pathEscape": url.PathEscape,
		"plural": func(n int, singular, plural string) string {
			if n == 1 {
				return singular
			}
			return plural
		},
	}
}

// Templates parses every page template together with the shared layout.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(FuncMap()).ParseFS(templateFS, "templates/*.html")
}

func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// the directory is embedded at build time
		panic(err)
	}
	return http.FS(sub)
}
