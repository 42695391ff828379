package directory

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"cafefinder.de/web/internal/cafe"
)

// SearchResults groups matches by kind. All four lists are always non-nil.
type SearchResults struct {
	Cities   []string    `json:"cities"`
	Sections []string    `json:"sections"`
	Cafes    []cafe.Ref  `json:"cafes"`
	ZipCodes []ZipResult `json:"zipCodes"`
}

// Empty reports whether nothing matched.
func (r SearchResults) Empty() bool {
	return len(r.Cities)+len(r.Sections)+len(r.Cafes)+len(r.ZipCodes) == 0
}

// ZipResult is a postal code together with where it points.
type ZipResult struct {
	ZipCode string `json:"zipCode"`
	City    string `json:"city,omitempty"`
	Section string `json:"section,omitempty"`
}

func emptyResults() SearchResults {
	return SearchResults{
		Cities:   []string{},
		Sections: []string{},
		Cafes:    []cafe.Ref{},
		ZipCodes: []ZipResult{},
	}
}

// Search matches query against known cities, districts, café names and postal
// codes of the current grid. A blank query resets the results.
func (s *Store) Search(query string) SearchResults {
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		s.query = ""
		s.results = emptyResults()
		return emptyResults()
	}
	s.query = trimmed

	fold := cases.Fold()
	needle := fold.String(trimmed)
	matches := func(v string) bool {
		return v != "" && strings.Contains(fold.String(v), needle)
	}

	res := emptyResults()
	for _, c := range s.cities {
		if matches(c) {
			res.Cities = append(res.Cities, c)
		}
	}
	for _, sec := range s.sections {
		if matches(sec) {
			res.Sections = append(res.Sections, sec)
		}
	}
	seenZip := map[string]bool{}
	for _, e := range s.posts {
		if e.Kind != cafe.KindProduct {
			continue
		}
		if matches(e.ShopName) {
			res.Cafes = append(res.Cafes, cafe.RefOf(e.Post))
		}
		if e.Address == nil || e.Address.ZipCode == "" {
			continue
		}
		zip := e.Address.ZipCode.String()
		if seenZip[zip] {
			continue
		}
		seenZip[zip] = true
		if strings.Contains(zip, trimmed) {
			res.ZipCodes = append(res.ZipCodes, ZipResult{ZipCode: zip, City: e.Address.City, Section: e.Address.CitySection})
		}
	}
	s.results = res
	return cloneResults(res)
}

// TargetKind names the kind of search result to navigate to.
type TargetKind string

const (
	TargetCity    TargetKind = "city"
	TargetSection TargetKind = "section"
	TargetCafe    TargetKind = "cafe"
	TargetZipCode TargetKind = "zipCode"
)

// SearchTarget is a picked search result. Value carries the city or district
// name; Cafe and Zip carry the other kinds.
type SearchTarget struct {
	Kind  TargetKind
	Value string
	Cafe  cafe.Ref
	Zip   ZipResult
}

// NavigateToSearchResult moves the store to the picked result. Unknown kinds
// are logged and ignored.
func (s *Store) NavigateToSearchResult(ctx context.Context, t SearchTarget) {
	switch t.Kind {
	case TargetCity:
		s.NavigateToCity(ctx, t.Value)
	case TargetSection:
		s.NavigateToSection(ctx, t.Value)
	case TargetCafe:
		s.SetCurrentCafe(ctx, t.Cafe)
	case TargetZipCode:
		if t.Zip.City == "" {
			return
		}
		s.mu.Lock()
		s.city = t.Zip.City
		s.section = t.Zip.Section
		s.nav++
		v := s.nav
		s.mu.Unlock()
		s.fetch(ctx, FetchParams{City: t.Zip.City, Section: t.Zip.Section}, v)
	default:
		s.logger.Error("unknown search result type", zap.String("kind", string(t.Kind)))
	}
}

func cloneResults(r SearchResults) SearchResults {
	return SearchResults{
		Cities:   append([]string{}, r.Cities...),
		Sections: append([]string{}, r.Sections...),
		Cafes:    append([]cafe.Ref{}, r.Cafes...),
		ZipCodes: append([]ZipResult{}, r.ZipCodes...),
	}
}
