package main

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"cafefinder.de/web/internal/config"
	"cafefinder.de/web/internal/httpx"
	"cafefinder.de/web/internal/i18n"
	mw "cafefinder.de/web/internal/middleware"
	"cafefinder.de/web/internal/observability"
	"cafefinder.de/web/internal/pages"
	"cafefinder.de/web/internal/seo"
	"cafefinder.de/web/internal/sitemap"
	"cafefinder.de/web/internal/state"
	"cafefinder.de/web/internal/strapi"
)

const requestTimeout = 30 * time.Second

// server bundles the dependencies shared by all handlers.
type server struct {
	cfg      config.Config
	logger   *zap.Logger
	finder   strapi.Finder
	i18n     *i18n.Bundle
	views    *views
	visitors *state.Registry
	pages    *pages.Store
	seo      *seo.Service
	sitemap  *sitemap.Generator
}

// newServer wires the content stores. A nil finder connects to the content
// API configured in cfg.
func newServer(cfg config.Config, logger *zap.Logger, finder strapi.Finder) (*server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if finder == nil {
		finder = strapi.NewClient(cfg.Strapi.URL,
			strapi.WithPrefix(cfg.Strapi.Prefix),
			strapi.WithToken(cfg.Strapi.Token),
			strapi.WithHTTPClient(&http.Client{Timeout: cfg.Content.Timeout}),
			strapi.WithCacheTTL(cfg.Content.CacheTTL),
			strapi.WithLogger(logger.Named("strapi")),
		)
	}

	bundle, err := i18n.Load(cfg.Paths.Locales, cfg.Site.Language, []string{"de", "en"})
	if err != nil {
		return nil, fmt.Errorf("load locales: %w", err)
	}

	s := &server{
		cfg:    cfg,
		logger: logger,
		finder: finder,
		i18n:   bundle,
		visitors: state.NewRegistry(finder, state.Config{
			TTL:         cfg.State.TTL,
			DefaultCity: cfg.State.DefaultCity,
			Logger:      logger.Named("state"),
		}),
		pages: pages.NewStore(
			pages.WithFinder(finder),
			pages.WithContentDir(cfg.Paths.Content),
			pages.WithCacheTTL(cfg.Content.CacheTTL),
			pages.WithLogger(logger.Named("pages")),
		),
		seo: seo.NewService(finder, logger.Named("seo")),
		sitemap: sitemap.NewGenerator(cfg.Site.URL,
			sitemap.WithFinder(finder),
			sitemap.WithLogger(logger.Named("sitemap")),
		),
	}
	s.views = newViews(cfg.Paths.Templates, cfg.Server.Dev, templateFuncs(bundle))
	if !cfg.Server.Dev {
		// parse once in production
		if _, err := s.views.load(); err != nil {
			return nil, fmt.Errorf("parse templates: %w", err)
		}
	}
	return s, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// If deployed behind a trusted reverse proxy/load balancer, RealIP will use
	// X-Forwarded-For to determine the client IP.
	r.Use(chimw.RealIP)
	r.Use(observability.InjectLoggerMiddleware(s.logger))
	r.Use(observability.TraceMiddleware())
	r.Use(observability.RequestLoggerMiddleware())
	r.Use(observability.RecoveryMiddleware(s.logger))
	r.Use(mw.HTMX)
	r.Use(mw.Session(mw.SessionConfig{
		SigningKey: s.cfg.Session.SigningKey,
		Secure:     s.cfg.Server.Production(),
		Logger:     s.logger.Named("session"),
	}))
	r.Use(mw.Locale(s.i18n))
	r.Use(mw.CSRF(s.cfg.Server.Production()))
	r.Use(mw.VaryLocale)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(requestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
	assets := http.StripPrefix("/assets", mw.AssetsWithCache(filepath.Join(s.cfg.Paths.Public, "assets")))
	r.Handle("/assets/*", assets)
	r.Get("/sitemap.xml", s.sitemapHandler)
	r.Get("/robots.txt", s.robotsHandler)

	// directory
	r.Get("/", s.homeHandler)
	r.Get("/stadt/{city}", s.cityHandler)
	r.Get("/stadt/{city}/{section}", s.sectionHandler)
	r.Get("/cafes/{id}", s.cafeHandler)
	r.Post("/cafes/{id}/detail", s.toggleDetailHandler)
	r.Post("/grid/reflow", s.reflowHandler)
	r.Post("/detail/close", s.closeDetailHandler)

	// menus
	r.Get("/cafe/{slug}", s.menuHandler)
	r.Post("/cafe/{slug}/items/{menu}/{category}/{item}", s.toggleItemHandler)
	r.Get("/cafe/{slug}/debug", s.menuDebugHandler)

	// search
	r.Get("/search", s.searchHandler)
	r.Get("/api/search", s.searchAPIHandler)
	r.Post("/search/go", s.searchGoHandler)

	// content pages
	r.Get("/impressum", s.contentPage(pages.KindStatic, "impressum"))
	r.Get("/kontakt", s.contentPage(pages.KindStatic, "kontakt"))
	r.Get("/menu/{item}", s.drinkHandler)

	r.NotFound(s.notFoundHandler)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, httpx.NewError("method_not_allowed", "method not allowed", http.StatusMethodNotAllowed))
	})
	return r
}

// visitor returns the stores of the current session.
func (s *server) visitor(r *http.Request) *state.Visitor {
	return s.visitors.Get(mw.GetSession(r).ID)
}
