package app

import (
	"embed"
	"html/template"
)

// templateFS contains the HTML templates bundled with the binary.
//
//go:embed templates/*
var templateFS embed.FS

// staticFS holds the stylesheet served under /static/.
//
//go:embed static/*
var staticFS embed.FS

var pageNames = []string{"listing", "article", "loading", "notfound", "error"}

// parseTemplates builds one template set per page, each pairing the shared
// layout with the page's "content" block.
func parseTemplates() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).ParseFS(templateFS, "templates/layout.gohtml", "templates/"+name+".gohtml")
		if err != nil {
			return nil, err
		}
		pages[name] = tmpl
	}
	return pages, nil
}
