package main

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"cafefinder.de/web/internal/cafe"
	"cafefinder.de/web/internal/detail"
	"cafefinder.de/web/internal/directory"
	handlersPkg "cafefinder.de/web/internal/handlers"
	"cafefinder.de/web/internal/httpx"
	"cafefinder.de/web/internal/media"
	mw "cafefinder.de/web/internal/middleware"
	"cafefinder.de/web/internal/nav"
	"cafefinder.de/web/internal/seo"
	"cafefinder.de/web/internal/state"
)

// homeHandler renders the grid of the visitor's current city.
func (s *server) homeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := s.visitor(r)
	s.ensureNavigation(r, v)
	v.Directory.NavigateToHome(ctx)
	s.renderDirectory(w, r, v, directoryPage{})
}

// cityHandler renders all cafés of a city.
func (s *server) cityHandler(w http.ResponseWriter, r *http.Request) {
	city := pathParam(r, "city")
	if city == "" {
		s.notFoundHandler(w, r)
		return
	}
	v := s.visitor(r)
	s.ensureNavigation(r, v)
	v.Directory.NavigateToCity(r.Context(), city)
	s.renderDirectory(w, r, v, directoryPage{})
}

// sectionHandler renders the cafés of one district.
func (s *server) sectionHandler(w http.ResponseWriter, r *http.Request) {
	city, section := pathParam(r, "city"), pathParam(r, "section")
	if city == "" || section == "" {
		s.notFoundHandler(w, r)
		return
	}
	ctx := r.Context()
	v := s.visitor(r)
	s.ensureNavigation(r, v)
	switch {
	case v.Directory.CurrentCity() != city:
		v.Directory.NavigateToCity(ctx, city)
	case len(v.Directory.Snapshot().Sections) == 0:
		v.Directory.LoadCitySections(ctx, city)
	}
	v.Directory.NavigateToSection(ctx, section)
	s.renderDirectory(w, r, v, directoryPage{})
}

// cafeHandler narrows the grid to a single café and shows its details.
func (s *server) cafeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		s.notFoundHandler(w, r)
		return
	}
	ctx := r.Context()
	v := s.visitor(r)
	s.ensureNavigation(r, v)
	entries := v.Directory.NavigateToCafe(ctx, id)
	post := v.Directory.LoadCafeDetail(ctx, id)
	if post == nil && len(entries) > 0 {
		p := entries[0].Post
		post = &p
	}
	if post == nil {
		if v.Directory.Snapshot().Err != "" {
			s.writeError(w, r, httpx.NewError("content_unavailable", s.t(r, "error.generic"), http.StatusBadGateway))
			return
		}
		s.notFoundHandler(w, r)
		return
	}
	s.renderDirectory(w, r, v, directoryPage{cafe: post})
}

// toggleDetailHandler opens, switches or closes the detail row of a café. The
// grid script posts the viewport width and the card offsets.
func (s *server) toggleDetailHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		s.writeError(w, r, httpx.BadRequest("invalid cafe id"))
		return
	}
	v := s.visitor(r)
	perRow := detail.ItemsPerRow(measurement(r))
	t, ok := v.Directory.ToggleDetail(id, perRow)
	if !ok {
		s.writeError(w, r, httpx.NotFound("cafe is not in the grid").WithDetails(map[string]any{"id": id}))
		return
	}
	if !mw.IsHTMX(r.Context()) {
		backTo(w, r, "/")
		return
	}
	mw.Trigger(w, "detail:"+t.String(), map[string]any{"id": id, "itemsPerRow": perRow})
	s.renderGrid(w, r, v)
}

// reflowHandler moves the open detail row after a resize. It answers 204 when
// the grid did not change.
func (s *server) reflowHandler(w http.ResponseWriter, r *http.Request) {
	v := s.visitor(r)
	if !v.Directory.ReflowDetail(detail.ItemsPerRow(measurement(r))) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if !mw.IsHTMX(r.Context()) {
		backTo(w, r, "/")
		return
	}
	s.renderGrid(w, r, v)
}

func (s *server) closeDetailHandler(w http.ResponseWriter, r *http.Request) {
	v := s.visitor(r)
	v.Directory.CloseDetail()
	if !mw.IsHTMX(r.Context()) {
		backTo(w, r, "/")
		return
	}
	mw.Trigger(w, "detail:close", map[string]any{})
	s.renderGrid(w, r, v)
}

func (s *server) renderGrid(w http.ResponseWriter, r *http.Request, v *state.Visitor) {
	s.renderTemplate(w, r, "grid", s.gridData(r, v.Directory.Snapshot()))
}

// directoryPage selects what the directory page shows besides the grid.
type directoryPage struct {
	cafe   *cafe.Post
	search *directory.SearchResults
	query  string
	// push swaps only the main column and pushes this URL (htmx only).
	push string
}

func (s *server) renderDirectory(w http.ResponseWriter, r *http.Request, v *state.Visitor, page directoryPage) {
	vm := s.directoryData(r, v.Directory.Snapshot(), page)
	if page.push != "" && mw.IsHTMX(r.Context()) {
		mw.PushURL(w, page.push)
		s.renderTemplate(w, r, "directory_main", vm)
		return
	}
	s.renderPage(w, r, "directory", vm)
}

func (s *server) directoryData(r *http.Request, snap directory.Snapshot, page directoryPage) handlersPkg.DirectoryData {
	lang := mw.Lang(r)
	var (
		title  string
		desc   string
		image  string
		crumbs []nav.Crumb
		jsonld []string
	)
	switch {
	case page.cafe != nil:
		p := *page.cafe
		title = p.ShopName
		desc = string(s.pages.Renderer().Markdown(string(p.Description)))
		if desc == "" {
			desc = s.t(r, "cafe.description", p.ShopName, p.City())
		}
		image = media.ImageURL(s.cfg.Strapi.URL, p.Image())
		crumbs = nav.Directory(p.City(), p.Section(), p.ID, p.ShopName)
		menuURL := ""
		if p.Slug != "" {
			menuURL = s.cfg.Site.URL + nav.MenuPath(p.Slug)
		}
		jsonld = append(jsonld, seo.JSON(seo.CafeOrCoffeeShop(p, s.cfg.Site.URL+nav.CafePath(p.ID), image, menuURL)))
	case snap.Section != "":
		title = s.t(r, "directory.section_title", snap.Section, snap.City)
		desc = s.t(r, "directory.section_description", snap.Section, snap.City)
		crumbs = nav.Directory(snap.City, snap.Section, 0, "")
	case r.URL.Path != "/" && snap.City != "":
		title = s.t(r, "directory.city_title", snap.City)
		desc = s.t(r, "directory.city_description", snap.City)
		crumbs = nav.Directory(snap.City, "", 0, "")
	default:
		title = s.t(r, "home.title")
		desc = s.t(r, "home.description")
		jsonld = append(jsonld, seo.JSON(seo.WebSite(s.cfg.Site.Name, s.cfg.Site.URL, s.cfg.Site.URL+"/search?q=")))
	}

	head := s.pageHead(r, title, desc, image)
	head.JSONLD = append(head.JSONLD, jsonld...)

	vm := handlersPkg.DirectoryData{
		Layout:   s.layout(r, head, crumbs),
		Title:    title,
		City:     snap.City,
		Section:  snap.Section,
		Cities:   handlersPkg.CityLinks(snap.Cities, snap.City),
		Sections: handlersPkg.SectionLinks(snap.City, snap.Sections, snap.Section),
		Grid:     s.gridData(r, snap),
		Search: handlersPkg.SearchData{
			Query:     page.query,
			Results:   snap.Results,
			City:      snap.City,
			Lang:      lang,
			CSRFToken: mw.CSRFToken(r),
		},
	}
	if page.search != nil {
		vm.Search.Results = *page.search
	}
	if page.cafe != nil {
		card := handlersPkg.CardOf(*page.cafe, s.cfg.Strapi.URL)
		card.Description = s.pages.Renderer().Markdown(string(page.cafe.Description))
		vm.Cafe = &card
	}
	return vm
}

func (s *server) gridData(r *http.Request, snap directory.Snapshot) handlersPkg.GridData {
	openID := 0
	if snap.DetailVisible {
		openID = snap.DetailID
	}
	return handlersPkg.GridData{
		Cards:     handlersPkg.BuildCards(snap.Posts, openID, s.cfg.Strapi.URL, s.pages.Renderer().Markdown),
		DetailID:  openID,
		Err:       snap.Err,
		Loading:   snap.Loading,
		CSRFToken: mw.CSRFToken(r),
		Lang:      mw.Lang(r),
	}
}

// ensureNavigation loads the city and district pickers on a visitor's first request.
func (s *server) ensureNavigation(r *http.Request, v *state.Visitor) {
	if len(v.Directory.Snapshot().Cities) == 0 {
		v.Directory.InitNavigation(r.Context())
	}
}

func measurement(r *http.Request) detail.Measurement {
	vw, _ := strconv.Atoi(strings.TrimSpace(r.PostFormValue("vw")))
	return detail.Measurement{
		ViewportWidth: vw,
		Tops:          handlersPkg.ParseTops(r.PostFormValue("tops")),
	}
}

func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		raw = v
	}
	return strings.TrimSpace(raw)
}

func intParam(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// indexParam accepts zero, which content entries without an id decode to.
func indexParam(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
