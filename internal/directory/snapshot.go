package directory

import "cafefinder.de/web/internal/cafe"

// Snapshot is a consistent copy of the store for rendering.
type Snapshot struct {
	Posts         []cafe.Entry
	Loading       bool
	Err           string
	City          string
	Section       string
	Current       *cafe.Post
	Query         string
	Results       SearchResults
	Sections      []string
	Cities        []string
	DetailID      int
	DetailVisible bool
}

// Snapshot copies the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, open := s.panel.Current()
	snap := Snapshot{
		Posts:         cloneEntries(s.posts),
		Loading:       s.loading > 0,
		Err:           s.err,
		City:          s.city,
		Section:       s.section,
		Query:         s.query,
		Results:       cloneResults(s.results),
		Sections:      append([]string(nil), s.sections...),
		Cities:        append([]string(nil), s.cities...),
		DetailID:      id,
		DetailVisible: open,
	}
	if s.current != nil {
		cp := *s.current
		snap.Current = &cp
	}
	return snap
}

// Posts returns the grid.
func (s *Store) Posts() []cafe.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEntries(s.posts)
}

// CurrentCity returns the selected city.
func (s *Store) CurrentCity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.city
}

// CurrentSection returns the selected district, or "".
func (s *Store) CurrentSection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.section
}

// CurrentCafe returns the selected café, or nil.
func (s *Store) CurrentCafe() *cafe.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// Err returns the last fetch error, or "".
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}

// Results returns the last search results.
func (s *Store) Results() SearchResults {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneResults(s.results)
}
