package main

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	handlersPkg "cafefinder.de/web/internal/handlers"
	"cafefinder.de/web/internal/httpx"
	mw "cafefinder.de/web/internal/middleware"
	"cafefinder.de/web/internal/nav"
	"cafefinder.de/web/internal/observability"
	"cafefinder.de/web/internal/seo"
)

const descriptionLimit = 160

// layout fills the shared layout fields. head is completed with the site
// defaults; breadcrumbs with more than one entry are also emitted as JSON-LD.
func (s *server) layout(r *http.Request, head seo.Head, crumbs []nav.Crumb) handlersPkg.Layout {
	lang := mw.Lang(r)
	if len(crumbs) > 1 {
		items := nav.JSONLD(s.cfg.Site.URL, crumbs, func(key string) string { return s.i18n.T(lang, key) })
		head.JSONLD = append(head.JSONLD, seo.JSON(seo.BreadcrumbList(items)))
	}
	return handlersPkg.Layout{
		Lang:             lang,
		Languages:        s.i18n.Supported(),
		Head:             head.WithDefaults(s.site(lang)),
		Path:             r.URL.Path,
		Nav:              nav.Build(r.URL.Path),
		Breadcrumbs:      crumbs,
		CSRFToken:        mw.CSRFToken(r),
		SiteName:         s.cfg.Site.Name,
		Dev:              s.cfg.Server.Dev,
		ResizeDebounceMS: s.cfg.State.ResizeDebounce.Milliseconds(),
	}
}

func (s *server) site(lang string) seo.Site {
	desc := s.cfg.Site.Description
	if lang != s.cfg.Site.Language {
		if localized := s.i18n.T(lang, "site.description"); localized != "site.description" {
			desc = localized
		}
	}
	return seo.Site{URL: s.cfg.Site.URL, Name: s.cfg.Site.Name, Description: desc, Language: lang}
}

// pageHead builds the head of a page that has no SEO record of its own.
func (s *server) pageHead(r *http.Request, title, description, image string) seo.Head {
	d := &seo.Data{
		Title:       title,
		Description: seo.PlainText(description, descriptionLimit),
		Image:       image,
		Canonical:   r.URL.Path,
	}
	return seo.NewHead(seo.GenerateMetaTags(d, s.cfg.Site.URL, r.URL.Path))
}

func (s *server) t(r *http.Request, key string, args ...any) string {
	return s.i18n.T(mw.Lang(r), key, args...)
}

// writeError answers htmx and JSON clients with the error envelope and
// everyone else with the error page.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err httpx.Error) {
	if err.Status >= http.StatusInternalServerError {
		observability.FromContext(r.Context()).Error("request failed", zap.String("code", err.Code), zap.String("message", err.Message))
	}
	if mw.IsHTMX(r.Context()) || strings.Contains(r.Header.Get("Accept"), "application/json") || strings.HasPrefix(r.URL.Path, "/api/") {
		httpx.WriteError(r.Context(), w, err)
		return
	}
	s.renderErrorPage(w, r, err.Status, err.Message)
}

func (s *server) renderErrorPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	key := "error.generic"
	if status == http.StatusNotFound {
		key = "error.not_found"
	}
	title := s.t(r, key)
	head := s.pageHead(r, title, "", "")
	head.Meta = append(head.Meta, seo.Tag{Name: "robots", Content: "noindex"})
	vm := handlersPkg.ErrorData{
		Layout:  s.layout(r, head, nil),
		Title:   title,
		Status:  status,
		Message: message,
	}
	s.renderPageStatus(w, r, status, "error", vm)
}

func (s *server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, httpx.NotFound(s.t(r, "error.not_found")))
}

// backTo redirects plain form posts to the page they came from.
func backTo(w http.ResponseWriter, r *http.Request, fallback string) {
	target := fallback
	if u, err := url.Parse(r.Referer()); err == nil && strings.HasPrefix(u.Path, "/") {
		target = u.RequestURI()
	}
	mw.Redirect(w, r, target)
}
