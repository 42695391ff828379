package handlers

import (
	"html/template"
	"strconv"
	"strings"

	"cafefinder.de/web/internal/cafe"
	"cafefinder.de/web/internal/directory"
	"cafefinder.de/web/internal/media"
	"cafefinder.de/web/internal/nav"
)

// Card is one grid cell: a café card or the expanded detail row.
type Card struct {
	ID          int
	UniqueID    int
	Name        string
	Slug        string
	Street      string
	City        string
	Section     string
	ZipCode     string
	ImageURL    string
	ImageAlt    string
	Href        string
	MenuHref    string
	Detail      bool
	Open        bool
	Description template.HTML
}

// GridData is the café grid fragment.
type GridData struct {
	Cards     []Card
	DetailID  int
	Err       string
	Loading   bool
	CSRFToken string
	Lang      string
}

// Empty reports whether there is nothing to show.
func (g GridData) Empty() bool { return len(g.Cards) == 0 }

// Link is a labelled href, used for city and district pickers.
type Link struct {
	Label  string
	Href   string
	Active bool
}

// DirectoryData is the view model of the home, city, district and café pages.
type DirectoryData struct {
	Layout
	Title    string
	City     string
	Section  string
	Cities   []Link
	Sections []Link
	Grid     GridData
	Search   SearchData
	Cafe     *Card
}

// SearchData is the search box and its results fragment.
type SearchData struct {
	Query   string
	Results directory.SearchResults
	City    string
	Lang    string
	// CSRFToken signs the result buttons, which post to /search/go.
	CSRFToken string
}

// HasQuery reports whether a search was run.
func (s SearchData) HasQuery() bool { return strings.TrimSpace(s.Query) != "" }

// Markdown renders a café description.
type Markdown func(src string) template.HTML

// BuildCards maps grid entries to cards. Image paths are resolved against
// mediaBase and descriptions are rendered only for the detail row.
func BuildCards(entries []cafe.Entry, openID int, mediaBase string, md Markdown) []Card {
	out := make([]Card, 0, len(entries))
	for _, e := range entries {
		c := CardOf(e.Post, mediaBase)
		c.UniqueID = e.UniqueID
		c.Detail = e.IsDetail()
		c.Open = !c.Detail && e.ID == openID
		if c.Detail && md != nil && e.Description != "" {
			c.Description = md(string(e.Description))
		}
		out = append(out, c)
	}
	return out
}

// CardOf maps a single café.
func CardOf(p cafe.Post, mediaBase string) Card {
	c := Card{
		ID:       p.ID,
		Name:     p.ShopName,
		Slug:     p.Slug,
		ImageURL: media.ImageURL(mediaBase, p.Image()),
		Href:     nav.CafePath(p.ID),
	}
	if len(p.ShopImages) > 0 {
		c.ImageAlt = p.ShopImages[0].AlternativeText
	}
	if c.ImageAlt == "" {
		c.ImageAlt = p.ShopName
	}
	if p.Slug != "" {
		c.MenuHref = nav.MenuPath(p.Slug)
	}
	if a := p.Address; a != nil {
		c.Street = a.Street
		c.City = a.City
		c.Section = a.CitySection
		c.ZipCode = a.ZipCode.String()
	}
	return c
}

// CityLinks builds the city picker.
func CityLinks(cities []string, current string) []Link {
	out := make([]Link, 0, len(cities))
	for _, c := range cities {
		out = append(out, Link{Label: c, Href: nav.CityPath(c), Active: c == current})
	}
	return out
}

// SectionLinks builds the district picker of city.
func SectionLinks(city string, sections []string, current string) []Link {
	out := make([]Link, 0, len(sections))
	for _, s := range sections {
		out = append(out, Link{Label: s, Href: nav.SectionPath(city, s), Active: s == current})
	}
	return out
}

// ParseTops reads the comma separated card offsets posted by the grid script.
// Unparsable values are skipped.
func ParseTops(raw string) []float64 {
	var out []float64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}
