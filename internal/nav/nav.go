// Package nav builds the main navigation and breadcrumbs.
package nav

import (
	"net/url"
	"path"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cafefinder.de/web/internal/seo"
)

// Item represents a top-level navigation item.
type Item struct {
	Path     string // e.g. "/kontakt"
	LabelKey string // i18n key, e.g. "nav.contact"
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href     string
	LabelKey string
	Active   bool
}

// Crumb represents a breadcrumb entry. If LabelKey is empty, use Label.
type Crumb struct {
	Href     string
	LabelKey string
	Label    string
	Active   bool
}

// Main is the primary navigation definition.
var Main = []Item{
	{Path: "/", LabelKey: "nav.home"},
	{Path: "/menu/espresso", LabelKey: "nav.drinks"},
	{Path: "/kontakt", LabelKey: "nav.contact"},
}

// sections without a nav item of their own
var sectionKeys = map[string]string{
	"stadt":     "nav.cities",
	"cafes":     "nav.cafes",
	"cafe":      "nav.cafes",
	"menu":      "nav.drinks",
	"impressum": "nav.imprint",
	"kontakt":   "nav.contact",
}

var titleCaser = cases.Title(language.German)

// Build renders navigation items with active state given the current path.
func Build(currentPath string) []RenderedItem {
	if currentPath == "" {
		currentPath = "/"
	}
	items := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		items = append(items, RenderedItem{
			Href:     it.Path,
			LabelKey: it.LabelKey,
			Active:   isActive(it.Path, currentPath),
		})
	}
	return items
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "/" {
		return currentPath == "/" || strings.HasPrefix(currentPath, "/stadt/") || strings.HasPrefix(currentPath, "/cafes/")
	}
	if currentPath == itemPath {
		return true
	}
	// "/menu/espresso" marks every drink page
	if dir := path.Dir(itemPath); dir != "/" && strings.HasPrefix(currentPath, dir+"/") {
		return true
	}
	return strings.HasPrefix(currentPath, itemPath+"/")
}

// Breadcrumbs builds breadcrumb entries from a static page path.
func Breadcrumbs(currentPath string) []Crumb {
	if currentPath == "" {
		currentPath = "/"
	}
	crumbs := []Crumb{{Href: "/", LabelKey: "nav.home", Active: currentPath == "/"}}
	if currentPath == "/" {
		return crumbs
	}
	clean := path.Clean(currentPath)
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	href := ""
	for i, part := range parts {
		href += "/" + part
		c := Crumb{Href: href, Label: titleFromSegment(part), Active: i == len(parts)-1}
		if i == 0 {
			c.LabelKey = sectionKeys[part]
		}
		crumbs = append(crumbs, c)
	}
	return crumbs
}

// Directory builds Home › city › section › café. Empty parts are skipped.
func Directory(city, section string, cafeID int, cafeName string) []Crumb {
	crumbs := []Crumb{{Href: "/", LabelKey: "nav.home"}}
	if city != "" {
		crumbs = append(crumbs, Crumb{Href: CityPath(city), Label: city})
		if section != "" {
			crumbs = append(crumbs, Crumb{Href: SectionPath(city, section), Label: section})
		}
	}
	if cafeID > 0 {
		crumbs = append(crumbs, Crumb{Href: CafePath(cafeID), Label: cafeName})
	}
	crumbs[len(crumbs)-1].Active = true
	return crumbs
}

// CityPath is the listing URL of a city.
func CityPath(city string) string {
	return "/stadt/" + url.PathEscape(city)
}

// SectionPath is the listing URL of a city section.
func SectionPath(city, section string) string {
	return CityPath(city) + "/" + url.PathEscape(section)
}

// CafePath is the detail URL of a café.
func CafePath(id int) string {
	return "/cafes/" + strconv.Itoa(id)
}

// MenuPath is the menu page URL of a café slug.
func MenuPath(slug string) string {
	return "/cafe/" + url.PathEscape(slug)
}

// JSONLD converts crumbs to schema.org items. label resolves LabelKey entries.
func JSONLD(baseURL string, crumbs []Crumb, label func(key string) string) []seo.BreadcrumbItem {
	baseURL = strings.TrimRight(baseURL, "/")
	out := make([]seo.BreadcrumbItem, 0, len(crumbs))
	for _, c := range crumbs {
		name := c.Label
		if c.LabelKey != "" && label != nil {
			name = label(c.LabelKey)
		}
		out = append(out, seo.BreadcrumbItem{Name: name, Item: baseURL + c.Href})
	}
	return out
}

func titleFromSegment(seg string) string {
	if unescaped, err := url.PathUnescape(seg); err == nil {
		seg = unescaped
	}
	s := strings.NewReplacer("-", " ", "_", " ").Replace(seg)
	return titleCaser.String(s)
}
