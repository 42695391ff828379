// Package sitemap renders sitemap.xml and robots.txt.
package sitemap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	smap "github.com/snabb/sitemap"
	"go.uber.org/zap"

	"cafefinder.de/web/internal/pages"
	"cafefinder.de/web/internal/strapi"
)

const (
	ContentTypeXML      = "application/xml"
	ContentTypeText     = "text/plain"
	CacheControlSitemap = "max-age=86400, s-maxage=86400, stale-while-revalidate=43200"
	CacheControlRobots  = "max-age=86400, s-maxage=86400"

	cafePageSize = 100
	maxCafePages = 50
)

// MenuItems are the drink pages listed in the sitemap.
var MenuItems = pages.DrinkSlugs

// Entry is one <url> element.
type Entry struct {
	Path       string
	ChangeFreq string
	Priority   float64
	LastMod    time.Time
}

var staticPages = []Entry{
	{Path: "/", ChangeFreq: "daily", Priority: 1.0},
	{Path: "/impressum", ChangeFreq: "monthly", Priority: 0.3},
	{Path: "/kontakt", ChangeFreq: "monthly", Priority: 0.5},
}

// Generator builds the sitemap of the site at siteURL. Café pages are added
// when a finder is configured.
type Generator struct {
	siteURL string
	finder  strapi.Finder
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

func WithFinder(f strapi.Finder) Option { return func(g *Generator) { g.finder = f } }

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

func NewGenerator(siteURL string, opts ...Option) *Generator {
	g := &Generator{
		siteURL: strings.TrimRight(siteURL, "/"),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Entries lists static pages, drink pages and café pages in that order.
// Café lookup failures are logged and leave the café pages out.
func (g *Generator) Entries(ctx context.Context) []Entry {
	now := g.now().UTC()
	out := append([]Entry(nil), staticPages...)
	for _, item := range MenuItems {
		out = append(out, Entry{Path: "/menu/" + item, ChangeFreq: "weekly", Priority: 0.9, LastMod: now})
	}
	if g.finder == nil {
		return out
	}
	cafes, err := g.cafeEntries(ctx)
	if err != nil {
		g.logger.Warn("sitemap: cafe pages skipped", zap.Error(err))
		return out
	}
	return append(out, cafes...)
}

func (g *Generator) cafeEntries(ctx context.Context) ([]Entry, error) {
	var out []Entry
	for page := 1; page <= maxCafePages; page++ {
		resp, err := g.finder.Find(ctx, "posts", strapi.Query{
			Fields:   []string{"slug", "updatedAt"},
			Sort:     []string{"id:asc"},
			Page:     page,
			PageSize: cafePageSize,
		})
		if err != nil {
			return nil, err
		}
		var rows []struct {
			Slug      string    `json:"slug"`
			UpdatedAt time.Time `json:"updatedAt"`
		}
		if err := json.Unmarshal(resp.Data, &rows); err != nil {
			return nil, fmt.Errorf("sitemap: decode posts: %w", err)
		}
		for _, r := range rows {
			if strings.TrimSpace(r.Slug) == "" {
				continue
			}
			out = append(out, Entry{Path: "/cafe/" + r.Slug, ChangeFreq: "weekly", Priority: 0.8, LastMod: r.UpdatedAt})
		}
		if len(rows) < cafePageSize || page >= resp.Meta.Pagination.PageCount {
			break
		}
	}
	return out, nil
}

// XML renders the sitemap document.
func (g *Generator) XML(ctx context.Context) ([]byte, error) {
	doc := smap.New()
	for _, e := range g.Entries(ctx) {
		u := &smap.URL{
			Loc:        g.siteURL + e.Path,
			ChangeFreq: smap.ChangeFreq(e.ChangeFreq),
			Priority:   float32(e.Priority),
		}
		if !e.LastMod.IsZero() {
			lastMod := e.LastMod.UTC()
			u.LastMod = &lastMod
		}
		doc.Add(u)
	}
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("sitemap: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Robots renders robots.txt allowing everything and pointing at the sitemap.
func Robots(siteURL string) string {
	return strings.Join([]string{
		"User-agent: *",
		"Allow: /",
		"",
		"Sitemap: " + strings.TrimRight(siteURL, "/") + "/sitemap.xml",
	}, "\n")
}
