// Package seo builds the head metadata of rendered pages.
package seo

import (
	"encoding/json"
	"strings"
)

const (
	DefaultOGType      = "website"
	DefaultTwitterCard = "summary_large_image"
)

// Data is the SEO record of a content entry.
type Data struct {
	Title       string
	Description string
	Keywords    string
	Image       string
	Canonical   string
	OGType      string
	TwitterCard string
	Raw         json.RawMessage
}

// Tag is one head entry: a title, a meta tag (Name or Property with Content)
// or a link (Rel with Href).
type Tag struct {
	Title    string
	Name     string
	Property string
	Content  string
	Rel      string
	Href     string
}

// Site holds the site-wide defaults.
type Site struct {
	URL         string
	Name        string
	Description string
	Language    string
}

// GenerateMetaTags returns the head tags for d. Relative image and canonical
// paths are prefixed with baseURL. og:url is emitted when both baseURL and
// fullPath are known. A nil d yields no tags.
func GenerateMetaTags(d *Data, baseURL, fullPath string) []Tag {
	if d == nil {
		return nil
	}
	baseURL = strings.TrimRight(baseURL, "/")
	ogType := firstNonEmpty(d.OGType, DefaultOGType)
	card := firstNonEmpty(d.TwitterCard, DefaultTwitterCard)

	var tags []Tag
	if d.Title != "" {
		tags = append(tags, Tag{Title: d.Title})
	}
	if d.Description != "" {
		tags = append(tags, Tag{Name: "description", Content: d.Description})
	}
	if d.Keywords != "" {
		tags = append(tags, Tag{Name: "keywords", Content: d.Keywords})
	}
	if d.Canonical != "" {
		tags = append(tags, Tag{Rel: "canonical", Href: baseURL + d.Canonical})
	}
	if d.Title != "" {
		tags = append(tags, Tag{Property: "og:title", Content: d.Title})
	}
	if d.Description != "" {
		tags = append(tags, Tag{Property: "og:description", Content: d.Description})
	}
	tags = append(tags, Tag{Property: "og:type", Content: ogType})
	if baseURL != "" && fullPath != "" {
		tags = append(tags, Tag{Property: "og:url", Content: baseURL + fullPath})
	}
	img := imageURL(d.Image, baseURL)
	if img != "" {
		tags = append(tags, Tag{Property: "og:image", Content: img})
	}
	tags = append(tags, Tag{Name: "twitter:card", Content: card})
	if d.Title != "" {
		tags = append(tags, Tag{Name: "twitter:title", Content: d.Title})
	}
	if d.Description != "" {
		tags = append(tags, Tag{Name: "twitter:description", Content: d.Description})
	}
	if img != "" {
		tags = append(tags, Tag{Name: "twitter:image", Content: img})
	}
	return tags
}

func imageURL(image, baseURL string) string {
	if image == "" {
		return ""
	}
	if strings.HasPrefix(image, "http") {
		return image
	}
	return baseURL + image
}

// Head is the split form of a tag list, as rendered into <head>.
type Head struct {
	Title string
	Meta  []Tag
	Links []Tag
	// JSONLD holds serialized structured data blocks.
	JSONLD []string
}

// NewHead splits tags into title, meta and link entries.
func NewHead(tags []Tag) Head {
	var h Head
	for _, t := range tags {
		switch {
		case t.Title != "":
			if h.Title == "" {
				h.Title = t.Title
			}
		case t.Name != "" || t.Property != "":
			h.Meta = append(h.Meta, t)
		case t.Rel != "":
			h.Links = append(h.Links, t)
		}
	}
	return h
}

// WithDefaults fills in the site-wide tags the page did not set itself. The
// title gets the site name appended.
func (h Head) WithDefaults(site Site) Head {
	out := h
	out.Meta = append([]Tag(nil), h.Meta...)
	out.Links = append([]Tag(nil), h.Links...)
	switch {
	case out.Title == "":
		out.Title = site.Name
	case site.Name != "" && !strings.Contains(out.Title, site.Name):
		out.Title = out.Title + " | " + site.Name
	}
	add := func(t Tag) {
		for _, m := range out.Meta {
			if (t.Name != "" && m.Name == t.Name) || (t.Property != "" && m.Property == t.Property) {
				return
			}
		}
		out.Meta = append(out.Meta, t)
	}
	if site.Description != "" {
		add(Tag{Name: "description", Content: site.Description})
	}
	add(Tag{Name: "format-detection", Content: "telephone=no"})
	if site.Name != "" {
		add(Tag{Property: "og:site_name", Content: site.Name})
	}
	add(Tag{Property: "og:type", Content: DefaultOGType})
	add(Tag{Name: "twitter:card", Content: DefaultTwitterCard})
	hasIcon := false
	for _, l := range out.Links {
		if l.Rel == "icon" {
			hasIcon = true
		}
	}
	if !hasIcon {
		out.Links = append(out.Links, Tag{Rel: "icon", Href: "/favicon.ico"})
	}
	return out
}

// MetaContent returns the content of the meta tag with the given name or
// property, or "".
func (h Head) MetaContent(key string) string {
	for _, m := range h.Meta {
		if m.Name == key || m.Property == key {
			return m.Content
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
