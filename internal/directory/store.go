// Package directory holds the per-visitor browsing state: the café grid for
// the current city or district, the open detail panel, and search.
package directory

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"cafefinder.de/web/internal/cafe"
	"cafefinder.de/web/internal/detail"
	"cafefinder.de/web/internal/strapi"
)

const (
	DefaultCity        = "Köln"
	errFetchPostsEmpty = "Failed to fetch posts"
)

// Store is safe for concurrent use. Content API calls are made without holding
// the lock; results of a navigation are dropped when a newer navigation was
// issued in the meantime.
type Store struct {
	finder strapi.Finder
	logger *zap.Logger

	mu       sync.Mutex
	posts    []cafe.Entry
	loading  int
	err      string
	city     string
	section  string
	current  *cafe.Post
	query    string
	results  SearchResults
	sections []string
	cities   []string
	panel    detail.Panel
	nav      uint64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultCity sets the city shown before any navigation.
func WithDefaultCity(city string) Option {
	return func(s *Store) { s.city = city }
}

// NewStore returns a store with an empty grid.
func NewStore(finder strapi.Finder, opts ...Option) *Store {
	s := &Store{
		finder:  finder,
		logger:  zap.NewNop(),
		city:    DefaultCity,
		posts:   []cafe.Entry{},
		results: emptyResults(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("store", "directory"))
	return s
}

// FetchParams narrows FetchPosts. A café id wins over city and section.
type FetchParams struct {
	CafeID  int
	City    string
	Section string
}

func (p FetchParams) query() strapi.Query {
	q := strapi.Query{Populate: "*"}
	if p.CafeID != 0 {
		q.Filters = strapi.Filters{}.Eq(strconv.Itoa(p.CafeID), "id")
		return q
	}
	var f strapi.Filters
	if p.Section != "" {
		f = f.Eq(p.Section, "address", "city_section")
	}
	if p.City != "" {
		f = f.Eq(p.City, "address", "city")
	}
	q.Filters = f
	return q
}

// LoadAvailableCities loads the distinct cities that have cafés. Errors are
// logged and yield an empty list.
func (s *Store) LoadAvailableCities(ctx context.Context) []string {
	cities, err := s.distinctAddressField(ctx, "city", strapi.Query{
		Fields:   []string{"id"},
		Populate: map[string]any{"address": map[string]any{"fields": []string{"city"}}},
	})
	if err != nil {
		s.logger.Error("fetch cities", zap.Error(err))
		return []string{}
	}
	s.mu.Lock()
	s.cities = cities
	if s.city == "" && len(cities) > 0 {
		s.city = cities[0]
	}
	s.mu.Unlock()
	return append([]string(nil), cities...)
}

// LoadCitySections loads the distinct districts of city. An empty city means
// the current one.
func (s *Store) LoadCitySections(ctx context.Context, city string) []string {
	return s.loadCitySections(ctx, city, 0)
}

func (s *Store) loadCitySections(ctx context.Context, city string, version uint64) []string {
	if city == "" {
		city = s.CurrentCity()
	}
	sections, err := s.distinctAddressField(ctx, "city_section", strapi.Query{
		Fields:   []string{"id"},
		Filters:  strapi.Filters{}.Eq(city, "address", "city"),
		Populate: map[string]any{"address": map[string]any{"fields": []string{"city_section"}}},
	})
	if err != nil {
		s.logger.Error("fetch city sections", zap.String("city", city), zap.Error(err))
		return []string{}
	}
	s.mu.Lock()
	if version == 0 || version == s.nav {
		s.sections = sections
	}
	s.mu.Unlock()
	return append([]string(nil), sections...)
}

// InitNavigation loads cities, then the districts of the current city.
func (s *Store) InitNavigation(ctx context.Context) {
	s.LoadAvailableCities(ctx)
	s.LoadCitySections(ctx, "")
}

func (s *Store) distinctAddressField(ctx context.Context, field string, q strapi.Query) ([]string, error) {
	resp, err := s.finder.Find(ctx, "posts", q)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Address map[string]json.RawMessage `json:"address"`
	}
	if err := resp.Decode(&rows); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := []string{}
	for _, r := range rows {
		var v cafe.FlexString
		if raw, ok := r.Address[field]; !ok || json.Unmarshal(raw, &v) != nil || v == "" {
			continue
		}
		if !seen[string(v)] {
			seen[string(v)] = true
			out = append(out, string(v))
		}
	}
	return out, nil
}

// FetchPosts replaces the grid with the cafés matching p. It returns nil when
// the fetch failed or a newer navigation superseded it.
func (s *Store) FetchPosts(ctx context.Context, p FetchParams) []cafe.Entry {
	return s.fetch(ctx, p, s.beginNavigation())
}

func (s *Store) beginNavigation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nav++
	return s.nav
}

func (s *Store) fetch(ctx context.Context, p FetchParams, version uint64) []cafe.Entry {
	s.mu.Lock()
	s.loading++
	s.err = ""
	s.mu.Unlock()

	q := p.query()
	s.logger.Debug("fetch posts", zap.String("query", q.Encode()))
	entries, err := s.fetchEntries(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if version != s.nav {
		s.logger.Debug("drop superseded navigation", zap.Uint64("version", version), zap.Uint64("current", s.nav))
		return nil
	}
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = errFetchPostsEmpty
		}
		s.err = msg
		s.logger.Error("fetch posts", zap.Error(err))
		return nil
	}
	s.posts = entries
	s.panel.Close()
	return cloneEntries(entries)
}

func (s *Store) fetchEntries(ctx context.Context, q strapi.Query) ([]cafe.Entry, error) {
	resp, err := s.finder.Find(ctx, "posts", q)
	if err != nil {
		return nil, err
	}
	var posts []cafe.Post
	if err := resp.Decode(&posts); err != nil {
		return nil, err
	}
	entries := make([]cafe.Entry, len(posts))
	for i, p := range posts {
		entries[i] = cafe.Entry{Post: p, UniqueID: i + 1, Kind: cafe.KindProduct}
	}
	return entries, nil
}

// NavigateToCity switches to city, resets district and café, reloads the
// district list and the grid.
func (s *Store) NavigateToCity(ctx context.Context, city string) []cafe.Entry {
	s.mu.Lock()
	s.city = city
	s.section = ""
	s.current = nil
	s.nav++
	v := s.nav
	s.mu.Unlock()

	s.loadCitySections(ctx, city, v)
	s.clearIfCurrent(v)
	return s.fetch(ctx, FetchParams{City: city}, v)
}

// NavigateToSection switches to a district of the current city.
func (s *Store) NavigateToSection(ctx context.Context, section string) []cafe.Entry {
	s.mu.Lock()
	s.section = section
	s.current = nil
	s.posts = []cafe.Entry{}
	s.panel.Close()
	s.nav++
	v := s.nav
	city := s.city
	s.mu.Unlock()

	return s.fetch(ctx, FetchParams{City: city, Section: section}, v)
}

// NavigateToHome keeps the city and resets district and café.
func (s *Store) NavigateToHome(ctx context.Context) []cafe.Entry {
	s.mu.Lock()
	s.section = ""
	s.current = nil
	s.posts = []cafe.Entry{}
	s.panel.Close()
	s.nav++
	v := s.nav
	city := s.city
	s.mu.Unlock()

	return s.fetch(ctx, FetchParams{City: city}, v)
}

// NavigateToCafe shows a single café and moves city and district to its address.
func (s *Store) NavigateToCafe(ctx context.Context, id int) []cafe.Entry {
	s.mu.Lock()
	s.posts = []cafe.Entry{}
	s.panel.Close()
	s.nav++
	v := s.nav
	s.mu.Unlock()

	entries := s.fetch(ctx, FetchParams{CafeID: id}, v)
	if len(entries) == 0 {
		return entries
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v != s.nav {
		return entries
	}
	first := entries[0].Post
	s.current = &first
	if a := first.Address; a != nil {
		if a.City != "" {
			s.city = a.City
		}
		if a.CitySection != "" {
			s.section = a.CitySection
		}
	}
	return entries
}

// SetCurrentCafe selects a café from a search result and narrows the grid to it.
func (s *Store) SetCurrentCafe(ctx context.Context, ref cafe.Ref) {
	s.mu.Lock()
	post := cafe.Post{ID: ref.ID, ShopName: ref.Name, Address: ref.Address}
	s.current = &post
	if ref.ID == 0 {
		s.mu.Unlock()
		return
	}
	if a := ref.Address; a != nil {
		if a.City != "" {
			s.city = a.City
		}
		if a.CitySection != "" {
			s.section = a.CitySection
		}
	}
	s.nav++
	v := s.nav
	s.mu.Unlock()

	s.fetch(ctx, FetchParams{CafeID: ref.ID}, v)
}

// LoadCafeDetail loads one café with all relations and makes it current.
func (s *Store) LoadCafeDetail(ctx context.Context, id int) *cafe.Post {
	resp, err := s.finder.FindOne(ctx, "posts", strconv.Itoa(id), strapi.Query{Populate: "*"})
	if err != nil {
		s.logger.Error("load cafe detail", zap.Int("id", id), zap.Error(err))
		return nil
	}
	var p cafe.Post
	if err := resp.Decode(&p); err != nil {
		s.logger.Error("decode cafe detail", zap.Int("id", id), zap.Error(err))
		return nil
	}
	s.mu.Lock()
	s.current = &p
	s.mu.Unlock()
	cp := p
	return &cp
}

func (s *Store) clearIfCurrent(version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version == s.nav {
		s.posts = []cafe.Entry{}
		s.panel.Close()
	}
}

func cloneEntries(in []cafe.Entry) []cafe.Entry {
	out := make([]cafe.Entry, len(in))
	copy(out, in)
	return out
}
