package main

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"cafefinder.de/web/internal/format"
	handlersPkg "cafefinder.de/web/internal/handlers"
	"cafefinder.de/web/internal/httpx"
	mw "cafefinder.de/web/internal/middleware"
	"cafefinder.de/web/internal/nav"
	"cafefinder.de/web/internal/observability"
	"cafefinder.de/web/internal/pages"
	"cafefinder.de/web/internal/sitemap"
)

// contentPage serves a fixed page such as /impressum.
func (s *server) contentPage(kind, slug string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderContent(w, r, kind, slug, nil)
	}
}

// drinkHandler serves the drink pages listed in the sitemap.
func (s *server) drinkHandler(w http.ResponseWriter, r *http.Request) {
	slug := pathParam(r, "item")
	related := make([]nav.Crumb, 0, len(pages.DrinkSlugs))
	for _, d := range pages.DrinkSlugs {
		if d == slug {
			continue
		}
		related = append(related, nav.Crumb{Href: "/menu/" + d, LabelKey: "drinks." + d})
	}
	s.renderContent(w, r, pages.KindDrink, slug, related)
}

func (s *server) renderContent(w http.ResponseWriter, r *http.Request, kind, slug string, related []nav.Crumb) {
	lang := mw.Lang(r)
	page, err := s.pages.Get(r.Context(), kind, slug, lang)
	if err != nil {
		if errors.Is(err, pages.ErrNotFound) {
			s.notFoundHandler(w, r)
			return
		}
		observability.FromContext(r.Context()).Error("load page", zap.String("kind", kind), zap.String("slug", slug), zap.Error(err))
		s.writeError(w, r, httpx.NewError("page_unavailable", s.t(r, "error.generic"), http.StatusInternalServerError))
		return
	}

	title := firstNonEmpty(page.SEO.Title, page.Title)
	desc := firstNonEmpty(page.SEO.Description, page.Summary, string(page.HTML))
	head := s.pageHead(r, title, desc, page.SEO.OGImage)

	vm := handlersPkg.PageData{
		Layout:  s.layout(r, head, nav.Breadcrumbs(r.URL.Path)),
		Title:   page.Title,
		Summary: page.Summary,
		Body:    page.HTML,
		Related: related,
	}
	if !page.UpdatedAt.IsZero() {
		vm.UpdatedAt = format.FmtDate(page.UpdatedAt, lang)
	}
	s.renderPage(w, r, "page", vm)
}

// sitemapHandler serves the sitemap with static, drink and café pages.
func (s *server) sitemapHandler(w http.ResponseWriter, r *http.Request) {
	body, err := s.sitemap.XML(r.Context())
	if err != nil {
		observability.FromContext(r.Context()).Error("render sitemap", zap.Error(err))
		http.Error(w, "sitemap unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", sitemap.ContentTypeXML)
	w.Header().Set("Cache-Control", sitemap.CacheControlSitemap)
	_, _ = w.Write(body)
}

func (s *server) robotsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", sitemap.ContentTypeText)
	w.Header().Set("Cache-Control", sitemap.CacheControlRobots)
	_, _ = w.Write([]byte(sitemap.Robots(s.cfg.Site.URL)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
