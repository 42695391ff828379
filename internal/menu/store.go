// Package menu holds the per-visitor café menu state: cafés looked up by slug,
// their normalized menus, item selection, and a debug log of the lookup.
package menu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"cafefinder.de/web/internal/cafe"
	"cafefinder.de/web/internal/strapi"
)

const (
	errNoMenu      = "Keine Menüdaten für dieses Café verfügbar"
	errLoadPrefix  = "Fehler beim Laden der Café-Daten: "
	errUnknownText = "Unbekannter Fehler"
	populateDepth  = 10
	structPreview  = 200
)

// Store is safe for concurrent use.
type Store struct {
	finder strapi.Finder
	logger *zap.Logger
	now    func() time.Time
	group  singleflight.Group

	mu       sync.Mutex
	cafes    map[string]*cafe.Post
	missing  map[string]bool
	errs     map[string]string
	menus    map[int][]cafe.MenuCategory
	selected map[int]map[int]map[int]bool
	loading  int
	err      string
	debug    Debug
}

// Debug is a snapshot of the lookup log.
type Debug struct {
	Logs         []string
	Errors       []string
	RawResponses map[string]json.RawMessage
}

// Option configures a Store.
type Option func(*Store)

// WithLogger mirrors every debug entry to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for log timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns an empty store reading from finder.
func NewStore(finder strapi.Finder, opts ...Option) *Store {
	s := &Store{
		finder:   finder,
		logger:   zap.NewNop(),
		now:      time.Now,
		cafes:    map[string]*cafe.Post{},
		missing:  map[string]bool{},
		errs:     map[string]string{},
		menus:    map[int][]cafe.MenuCategory{},
		selected: map[int]map[int]map[int]bool{},
		debug:    Debug{RawResponses: map[string]json.RawMessage{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("store", "menu"))
	return s
}

// FetchCafeBySlug returns the café for slug, loading it and its menu on first
// use. Failures are recorded in Err and the debug log; the café is nil when it
// could not be loaded at all.
func (s *Store) FetchCafeBySlug(ctx context.Context, slug string) *cafe.Post {
	s.mu.Lock()
	if p, ok := s.cafes[slug]; ok {
		s.logLocked(fmt.Sprintf("Café-Daten für %s bereits geladen, verwende Cache", slug))
		s.mu.Unlock()
		return clonePost(p)
	}
	s.loading++
	s.err = ""
	delete(s.errs, slug)
	delete(s.missing, slug)
	s.mu.Unlock()

	v, _, _ := s.group.Do(slug, func() (any, error) {
		return s.load(ctx, slug), nil
	})

	s.mu.Lock()
	s.loading--
	s.mu.Unlock()

	p, _ := v.(*cafe.Post)
	return clonePost(p)
}

func (s *Store) load(ctx context.Context, slug string) *cafe.Post {
	s.log(fmt.Sprintf("Lade Café-Daten für slug: %s", slug))

	resp, err := s.finder.Find(ctx, "posts", strapi.Query{
		Filters: strapi.Filters{}.Eq(slug, "slug"),
		PLevel:  populateDepth,
	})
	if err != nil {
		s.fail(slug, errLoadPrefix+errorText(err), err)
		return nil
	}
	rows := resp.Items()
	if len(rows) == 0 {
		s.mu.Lock()
		s.missing[slug] = true
		s.mu.Unlock()
		s.fail(slug, fmt.Sprintf("Kein Café mit dem Slug %q gefunden", slug), nil)
		return nil
	}
	var post cafe.Post
	if err := json.Unmarshal(rows[0], &post); err != nil {
		s.fail(slug, errLoadPrefix+errorText(err), err)
		return nil
	}
	s.log(fmt.Sprintf("Café-Daten erfolgreich geladen: %s", post.ShopName))
	s.log(fmt.Sprintf("Menu section structure: %s...", preview(post.MenuSection)))

	s.mu.Lock()
	s.cafes[slug] = &post
	s.mu.Unlock()

	section := post.MenuSection
	if section == nil || section.ID == 0 {
		s.logError(fmt.Sprintf("Keine Menü-ID gefunden für Café: %s", slug), nil)
		s.setErr(slug, errNoMenu)
		return &post
	}
	menuID := section.ID

	if section.HasEmbeddedMenu() {
		s.log("Verarbeite direkt das eingebettete Menü aus der Café-Antwort")
		cats, err := cafe.NormalizeEmbeddedMenu(section)
		if err == nil {
			s.setMenu(menuID, cats)
			s.log(fmt.Sprintf("Erfolgreich %d Kategorien verarbeitet mit insgesamt %d Menüpunkten", len(cats), cafe.CountItems(cats)))
			return &post
		}
		s.logError(fmt.Sprintf("Fehler bei der Verarbeitung des direkten Menüs: %v", err), err)
	}

	s.log("Keine direkten Menüdaten verarbeitet. Versuche separate API-Anfrage...")
	if s.loadMenuRemote(ctx, menuID) {
		return &post
	}

	if section.HasEmbeddedMenu() {
		s.log("Erstelle leere Menüeinträge für vorhandene Kategorien")
		s.setMenu(menuID, cafe.CategoryShells(section))
		return &post
	}

	s.log(fmt.Sprintf("Keine Menüdaten gefunden für Café %s mit menu_section ID %d", slug, menuID))
	s.setErr(slug, errNoMenu)
	return &post
}

func (s *Store) loadMenuRemote(ctx context.Context, menuID int) bool {
	id := strconv.Itoa(menuID)
	s.log(fmt.Sprintf("Versuche direkten Zugriff auf menu_section mit ID: %d via findOne", menuID))

	resp, err := s.finder.FindOne(ctx, "menu-sections", id, strapi.Query{PLevel: populateDepth})
	if err != nil {
		s.log(fmt.Sprintf("Fehler bei menu-sections: %s", errorText(err)))
	} else {
		s.keepRaw("menu-sections-"+id, resp.Data)
		if s.processAPIMenu(menuID, resp.Data, "menu-sections") {
			return true
		}
	}

	s.log("Versuche Alternative Methode über posts Endpunkt")
	resp, err = s.finder.FindOne(ctx, "posts", id, strapi.Query{
		Populate: map[string]any{"menu_section": map[string]any{"populate": "*"}},
		PLevel:   populateDepth,
	})
	if err != nil {
		s.log(fmt.Sprintf("Fehler bei alternativer Methode: %s", errorText(err)))
		return false
	}
	s.keepRaw("posts-menu-"+id, resp.Data)
	var holder struct {
		MenuSection json.RawMessage `json:"menu_section"`
	}
	if err := json.Unmarshal(resp.Data, &holder); err != nil || len(holder.MenuSection) == 0 || string(holder.MenuSection) == "null" {
		return false
	}
	return s.processAPIMenu(menuID, holder.MenuSection, "posts-menu")
}

func (s *Store) processAPIMenu(menuID int, data json.RawMessage, source string) bool {
	s.log(fmt.Sprintf("Verarbeite Daten von %s", source))
	s.keepRaw(fmt.Sprintf("processed-%s-%d", source, menuID), data)

	cats, ok, err := cafe.ExtractMenu(data)
	if err != nil {
		s.logError(fmt.Sprintf("Fehler bei der Verarbeitung von %s-Daten: %v", source, err), err)
		return false
	}
	if !ok {
		s.log(fmt.Sprintf("Keine passende Datenstruktur in Antwort von %s gefunden", source))
		return false
	}
	s.setMenu(menuID, cats)
	s.log(fmt.Sprintf("%d Kategorien erfolgreich verarbeitet", len(cats)))
	return true
}

// CurrentCafe returns the cached café for slug, or nil.
func (s *Store) CurrentCafe(slug string) *cafe.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePost(s.cafes[slug])
}

// MenuForCafe returns the cached menu of the café with the given slug, with
// Selected set from the current selection. It is empty when nothing is loaded.
func (s *Store) MenuForCafe(slug string) []cafe.MenuCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.cafes[slug]
	if p == nil || p.MenuSection == nil {
		return []cafe.MenuCategory{}
	}
	menuID := p.MenuSection.ID
	cats := s.menus[menuID]
	out := make([]cafe.MenuCategory, len(cats))
	for i, c := range cats {
		items := make([]cafe.MenuItem, len(c.Items))
		for j, it := range c.Items {
			it.Tags = append([]string(nil), it.Tags...)
			it.Selected = s.selected[menuID][c.ID][it.ID]
			items[j] = it
		}
		c.Items = items
		out[i] = c
	}
	return out
}

// IsItemSelected reports whether the item is selected.
func (s *Store) IsItemSelected(menuID, categoryID, itemID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected[menuID][categoryID][itemID]
}

// ToggleItemSelection flips the selection of an item and returns the new state.
func (s *Store) ToggleItemSelection(menuID, categoryID, itemID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	byCategory, ok := s.selected[menuID]
	if !ok {
		byCategory = map[int]map[int]bool{}
		s.selected[menuID] = byCategory
	}
	items, ok := byCategory[categoryID]
	if !ok {
		items = map[int]bool{}
		byCategory[categoryID] = items
	}
	current := items[itemID]
	items[itemID] = !current
	verb := "ausgewählt"
	if current {
		verb = "abgewählt"
	}
	s.logLocked(fmt.Sprintf("Menüpunkt %d in Kategorie %d %s", itemID, categoryID, verb))
	return !current
}

// Missing reports whether the last lookup of slug found no café.
func (s *Store) Missing(slug string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missing[slug]
}

// ErrFor returns the error left by the last lookup of slug, or "".
func (s *Store) ErrFor(slug string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs[slug]
}

// Err returns the error of the most recent lookup, or "".
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Loading reports whether a lookup is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}

func (s *Store) ClearError() {
	s.mu.Lock()
	s.err = ""
	s.errs = map[string]string{}
	s.mu.Unlock()
}

// ClearLogs empties the log and error lists. Raw responses are kept.
func (s *Store) ClearLogs() {
	s.mu.Lock()
	s.debug.Logs = nil
	s.debug.Errors = nil
	s.mu.Unlock()
}

// Debug returns a copy of the debug log.
func (s *Store) Debug() Debug {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw := make(map[string]json.RawMessage, len(s.debug.RawResponses))
	for k, v := range s.debug.RawResponses {
		raw[k] = v
	}
	return Debug{
		Logs:         append([]string(nil), s.debug.Logs...),
		Errors:       append([]string(nil), s.debug.Errors...),
		RawResponses: raw,
	}
}

func (s *Store) setMenu(menuID int, cats []cafe.MenuCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menus[menuID] = cats
	if _, ok := s.selected[menuID]; !ok {
		s.selected[menuID] = map[int]map[int]bool{}
	}
}

func (s *Store) setErr(slug, msg string) {
	s.mu.Lock()
	s.err = msg
	s.errs[slug] = msg
	s.mu.Unlock()
}

func (s *Store) fail(slug, msg string, err error) {
	s.logError(msg, err)
	s.setErr(slug, msg)
}

func (s *Store) keepRaw(key string, data json.RawMessage) {
	s.mu.Lock()
	s.debug.RawResponses[key] = data
	s.mu.Unlock()
}

func (s *Store) log(msg string) {
	s.mu.Lock()
	s.logLocked(msg)
	s.mu.Unlock()
}

func (s *Store) logLocked(msg string) {
	s.debug.Logs = append(s.debug.Logs, s.stamp(msg))
	s.logger.Debug(msg)
}

func (s *Store) logError(msg string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debug.Errors = append(s.debug.Errors, s.stamp(msg))
	if err != nil {
		s.debug.Errors = append(s.debug.Errors, "Details: "+errorDetails(err))
		s.logger.Warn(msg, zap.Error(err))
		return
	}
	s.logger.Warn(msg)
}

func (s *Store) stamp(msg string) string {
	return s.now().UTC().Format("15:04:05") + ": " + msg
}

func errorText(err error) string {
	if err == nil || err.Error() == "" {
		return errUnknownText
	}
	return err.Error()
}

func errorDetails(err error) string {
	details := map[string]any{"message": err.Error()}
	var apiErr *strapi.APIError
	if errors.As(err, &apiErr) {
		details["status"] = apiErr.Status
		details["name"] = apiErr.Name
	}
	b, _ := json.Marshal(details)
	return string(b)
}

func preview(section *cafe.MenuSection) string {
	b, err := json.Marshal(section)
	if err != nil {
		return ""
	}
	r := []rune(string(b))
	if len(r) > structPreview {
		r = r[:structPreview]
	}
	return string(r)
}

func clonePost(p *cafe.Post) *cafe.Post {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
