package main

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"cafefinder.de/web/internal/cafe"
	"cafefinder.de/web/internal/directory"
	handlersPkg "cafefinder.de/web/internal/handlers"
	"cafefinder.de/web/internal/httpx"
	mw "cafefinder.de/web/internal/middleware"
	"cafefinder.de/web/internal/nav"
)

const maxQueryLength = 100

// searchHandler renders the results fragment for htmx and the directory page
// with results otherwise.
func (s *server) searchHandler(w http.ResponseWriter, r *http.Request) {
	q, ok := searchQuery(r)
	if !ok {
		s.writeError(w, r, httpx.BadRequest("query too long").WithDetails(map[string]any{"max": maxQueryLength}))
		return
	}
	v := s.visitor(r)
	s.ensureNavigation(r, v)
	if !mw.IsHTMX(r.Context()) && len(v.Directory.Posts()) == 0 {
		v.Directory.NavigateToHome(r.Context())
	}
	results := v.Directory.Search(q)
	if mw.IsHTMX(r.Context()) {
		s.renderTemplate(w, r, "search_results", handlersPkg.SearchData{
			Query:     q,
			Results:   results,
			City:      v.Directory.CurrentCity(),
			Lang:      mw.Lang(r),
			CSRFToken: mw.CSRFToken(r),
		})
		return
	}
	s.renderDirectory(w, r, v, directoryPage{search: &results, query: q})
}

// searchAPIHandler answers with {cities, sections, cafes, zipCodes}.
func (s *server) searchAPIHandler(w http.ResponseWriter, r *http.Request) {
	q, ok := searchQuery(r)
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.BadRequest("query too long").WithDetails(map[string]any{"max": maxQueryLength}))
		return
	}
	v := s.visitor(r)
	s.ensureNavigation(r, v)
	httpx.WriteJSON(w, http.StatusOK, v.Directory.Search(q))
}

// searchGoHandler navigates to a picked search result.
func (s *server) searchGoHandler(w http.ResponseWriter, r *http.Request) {
	target, err := searchTarget(r)
	if err != nil {
		s.writeError(w, r, *err)
		return
	}
	ctx := r.Context()
	v := s.visitor(r)
	v.Directory.NavigateToSearchResult(ctx, target)
	v.Directory.Search("")

	snap := v.Directory.Snapshot()
	dest := targetPath(target, snap.City)
	// only the directory page has a #directory to swap
	if !mw.IsHTMX(ctx) || !targetsDirectory(r) {
		mw.Redirect(w, r, dest)
		return
	}
	if target.Kind == directory.TargetZipCode {
		v.Directory.LoadCitySections(ctx, snap.City)
	}
	page := directoryPage{push: dest}
	if target.Kind == directory.TargetCafe {
		if p := v.Directory.CurrentCafe(); p != nil && p.ID == target.Cafe.ID {
			page.cafe = p
		}
	}
	s.renderDirectory(w, r, v, page)
}

func targetsDirectory(r *http.Request) bool {
	t := r.Header.Get("HX-Target")
	return t == "" || t == "directory"
}

func searchQuery(r *http.Request) (string, bool) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	return q, utf8.RuneCountInString(q) <= maxQueryLength
}

func searchTarget(r *http.Request) (directory.SearchTarget, *httpx.Error) {
	kind := directory.TargetKind(strings.TrimSpace(r.PostFormValue("kind")))
	value := strings.TrimSpace(r.PostFormValue("value"))
	t := directory.SearchTarget{Kind: kind, Value: value}
	switch kind {
	case directory.TargetCity, directory.TargetSection:
		if value == "" {
			e := httpx.BadRequest("missing value")
			return t, &e
		}
	case directory.TargetCafe:
		id, err := strconv.Atoi(r.PostFormValue("id"))
		if err != nil || id <= 0 {
			e := httpx.BadRequest("invalid cafe id")
			return t, &e
		}
		t.Cafe = cafe.Ref{
			ID:   id,
			Name: value,
			Address: &cafe.Address{
				City:        strings.TrimSpace(r.PostFormValue("city")),
				CitySection: strings.TrimSpace(r.PostFormValue("section")),
			},
		}
	case directory.TargetZipCode:
		t.Zip = directory.ZipResult{
			ZipCode: value,
			City:    strings.TrimSpace(r.PostFormValue("city")),
			Section: strings.TrimSpace(r.PostFormValue("section")),
		}
		if t.Zip.City == "" {
			e := httpx.BadRequest("zip code without city")
			return t, &e
		}
	default:
		e := httpx.BadRequest("unknown search result type").WithDetails(map[string]any{"kind": string(kind)})
		return t, &e
	}
	return t, nil
}

// targetPath is the page a navigated search result lives on.
func targetPath(t directory.SearchTarget, city string) string {
	switch t.Kind {
	case directory.TargetCity:
		return nav.CityPath(t.Value)
	case directory.TargetSection:
		return nav.SectionPath(city, t.Value)
	case directory.TargetCafe:
		return nav.CafePath(t.Cafe.ID)
	case directory.TargetZipCode:
		if t.Zip.Section != "" {
			return nav.SectionPath(t.Zip.City, t.Zip.Section)
		}
		return nav.CityPath(t.Zip.City)
	}
	return "/"
}
