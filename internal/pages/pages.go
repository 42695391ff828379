// Package pages serves the static and drink pages. Entries come from the
// content API "pages" collection when available, otherwise from local markdown
// under <dir>/<kind>/<lang>/<slug>.md, and finally from built-in drink pages.
package pages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"cafefinder.de/web/internal/cafe"
	"cafefinder.de/web/internal/strapi"
)

// ErrNotFound is returned when no source has the requested page.
var ErrNotFound = errors.New("pages: not found")

const (
	KindStatic = "pages"
	KindDrink  = "menu"

	defaultLang     = "de"
	defaultDir      = "content"
	defaultCacheTTL = 5 * time.Minute
	formatMarkdown  = "markdown"
	formatHTML      = "html"
)

// Page is a localized page ready for rendering.
type Page struct {
	Kind      string
	Slug      string
	Lang      string
	Title     string
	Summary   string
	Body      string
	Format    string
	HTML      template.HTML
	UpdatedAt time.Time
	SEO       SEO
	Source    string
}

// SEO holds optional metadata overrides.
type SEO struct {
	Title       string
	Description string
	OGImage     string
}

type frontMatter struct {
	Title     string         `yaml:"title"`
	Summary   string         `yaml:"summary"`
	Lang      string         `yaml:"lang"`
	Format    string         `yaml:"format"`
	UpdatedAt string         `yaml:"updated_at"`
	SEO       frontMatterSEO `yaml:"seo"`
}

type frontMatterSEO struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	OGImage     string `yaml:"og_image"`
}

// Store resolves pages and caches them for a short time.
type Store struct {
	finder   strapi.Finder
	dir      string
	ttl      time.Duration
	logger   *zap.Logger
	renderer *Renderer
	now      func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	page    Page
	expires time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithFinder enables the remote "pages" collection.
func WithFinder(f strapi.Finder) Option { return func(s *Store) { s.finder = f } }

// WithContentDir sets the local markdown directory.
func WithContentDir(dir string) Option {
	return func(s *Store) {
		if dir = strings.TrimSpace(dir); dir != "" {
			s.dir = dir
		}
	}
}

// WithCacheTTL overrides how long resolved pages are kept.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// NewStore builds a Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		dir:      defaultDir,
		ttl:      defaultCacheTTL,
		logger:   zap.NewNop(),
		renderer: NewRenderer(),
		now:      time.Now,
		cache:    map[string]cacheEntry{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("store", "pages"))
	return s
}

// Renderer exposes the markdown renderer used for page bodies.
func (s *Store) Renderer() *Renderer { return s.renderer }

// Get returns the page kind/slug in lang, falling back to German and English.
func (s *Store) Get(ctx context.Context, kind, slug, lang string) (Page, error) {
	kind = strings.TrimSpace(strings.ToLower(kind))
	if kind == "" {
		kind = KindStatic
	}
	slug = sanitizeSlug(slug)
	if slug == "" {
		return Page{}, ErrNotFound
	}
	lang = normalizeLang(lang)

	key := strings.Join([]string{kind, lang, slug}, "|")
	if page, ok := s.cached(key); ok {
		return page, nil
	}
	page, err := s.resolve(ctx, kind, slug, lang)
	if err != nil {
		return Page{}, err
	}
	page.HTML = s.renderer.Render(page.Body, page.Format)
	s.store(key, page)
	return page, nil
}

func (s *Store) resolve(ctx context.Context, kind, slug, lang string) (Page, error) {
	if s.finder != nil {
		page, err := s.fetchRemote(ctx, kind, slug, lang)
		if err == nil {
			return page, nil
		}
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("remote page fetch failed, using local content",
				zap.String("kind", kind), zap.String("slug", slug), zap.Error(err))
		}
	}
	page, err := s.fetchLocal(kind, slug, lang)
	if err == nil {
		return page, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Page{}, err
	}
	if kind == KindDrink {
		if page, ok := builtinDrink(slug, lang); ok {
			return page, nil
		}
	}
	return Page{}, ErrNotFound
}

type remotePage struct {
	Slug      string        `json:"slug"`
	Title     string        `json:"title"`
	Summary   string        `json:"summary"`
	Content   cafe.RichText `json:"content"`
	Kind      string        `json:"kind"`
	Locale    string        `json:"locale"`
	UpdatedAt time.Time     `json:"updatedAt"`
	SEO       *cafe.SEO     `json:"seo"`
}

func (s *Store) fetchRemote(ctx context.Context, kind, slug, lang string) (Page, error) {
	filters := strapi.Filters{}.Eq(slug, "slug")
	if kind != KindStatic {
		filters = filters.Eq(kind, "kind")
	}
	resp, err := s.finder.Find(ctx, "pages", strapi.Query{
		Filters:  filters,
		Populate: []string{"seo"},
		Locale:   lang,
	})
	if errors.Is(err, strapi.ErrNotFound) {
		return Page{}, ErrNotFound
	}
	if err != nil {
		return Page{}, fmt.Errorf("pages: fetch %s/%s: %w", kind, slug, err)
	}
	rows := resp.Items()
	if len(rows) == 0 {
		return Page{}, ErrNotFound
	}
	var rp remotePage
	if err := json.Unmarshal(rows[0], &rp); err != nil {
		return Page{}, fmt.Errorf("pages: decode %s/%s: %w", kind, slug, err)
	}
	if strings.TrimSpace(string(rp.Content)) == "" {
		return Page{}, ErrNotFound
	}
	page := Page{
		Kind:      kind,
		Slug:      firstNonEmpty(rp.Slug, slug),
		Lang:      firstNonEmpty(rp.Locale, lang),
		Title:     firstNonEmpty(rp.Title, prettifySlug(slug)),
		Summary:   strings.TrimSpace(rp.Summary),
		Body:      string(rp.Content),
		Format:    formatMarkdown,
		UpdatedAt: rp.UpdatedAt,
		Source:    "remote",
	}
	if rp.SEO != nil {
		page.SEO = SEO{Title: rp.SEO.MetaTitle, Description: rp.SEO.MetaDescription}
	}
	return page, nil
}

func (s *Store) fetchLocal(kind, slug, lang string) (Page, error) {
	for _, candidate := range langPriority(lang) {
		page, err := readMarkdown(s.dir, kind, slug, candidate)
		if err == nil {
			return page, nil
		}
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return Page{}, err
	}
	return Page{}, ErrNotFound
}

func readMarkdown(dir, kind, slug, lang string) (Page, error) {
	file := filepath.Join(dir, kind, lang, slug+".md")
	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return Page{}, ErrNotFound
	}
	if err != nil {
		return Page{}, err
	}
	fm, body := splitFrontMatter(string(data))
	var front frontMatter
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, fmt.Errorf("pages: parse front matter %s: %w", file, err)
		}
	}
	page := Page{
		Kind:    kind,
		Slug:    slug,
		Lang:    firstNonEmpty(front.Lang, lang),
		Title:   firstNonEmpty(front.Title, prettifySlug(slug)),
		Summary: strings.TrimSpace(front.Summary),
		Body:    body,
		Format:  firstNonEmpty(strings.ToLower(front.Format), formatMarkdown),
		SEO: SEO{
			Title:       strings.TrimSpace(front.SEO.Title),
			Description: strings.TrimSpace(front.SEO.Description),
			OGImage:     strings.TrimSpace(front.SEO.OGImage),
		},
		Source: "local",
	}
	page.UpdatedAt = parseDate(front.UpdatedAt)
	if page.UpdatedAt.IsZero() {
		if info, err := os.Stat(file); err == nil {
			page.UpdatedAt = info.ModTime()
		}
	}
	return page, nil
}

func (s *Store) cached(key string) (Page, bool) {
	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()
	if !ok || s.now().After(entry.expires) {
		return Page{}, false
	}
	return entry.page, true
}

func (s *Store) store(key string, page Page) {
	s.mu.Lock()
	s.cache[key] = cacheEntry{page: page, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	input = strings.ReplaceAll(input, "\r\n", "\n")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n")
		}
	}
	return "", input
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "02.01.2006"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func langPriority(lang string) []string {
	out := []string{lang}
	for _, l := range []string{defaultLang, "en"} {
		if l != lang {
			out = append(out, l)
		}
	}
	return out
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if lang == "" {
		return defaultLang
	}
	return lang
}

func prettifySlug(slug string) string {
	parts := strings.Split(strings.TrimSpace(slug), "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		r := []rune(part)
		parts[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(parts, " ")
}

func sanitizeSlug(slug string) string {
	slug = strings.Trim(strings.TrimSpace(strings.ToLower(slug)), "/")
	if slug == "" || strings.Contains(slug, "..") || strings.ContainsAny(slug, `/\`) {
		return ""
	}
	return slug
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
