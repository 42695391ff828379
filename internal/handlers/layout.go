// Package handlers holds the view models rendered by the web templates.
package handlers

import (
	"html/template"

	"cafefinder.de/web/internal/nav"
	"cafefinder.de/web/internal/seo"
)

// Layout carries the fields every page of the shared layout reads.
type Layout struct {
	Lang        string
	Languages   []string
	Head        seo.Head
	Path        string
	Nav         []nav.RenderedItem
	Breadcrumbs []nav.Crumb
	CSRFToken   string
	SiteName    string
	Dev         bool
	// ResizeDebounceMS delays the grid reflow request after a resize.
	ResizeDebounceMS int64
}

// PageData is the view model of a content page (imprint, contact, drinks).
type PageData struct {
	Layout
	Title     string
	Summary   string
	Body      template.HTML
	UpdatedAt string
	Related   []nav.Crumb
}

// ErrorData is the view model of the not-found and error pages.
type ErrorData struct {
	Layout
	Title   string
	Status  int
	Message string
}
