package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cafefinder.de/web/internal/config"
	"cafefinder.de/web/internal/strapi"
	"cafefinder.de/web/internal/strapi/strapitest"
)

const testPosts = `{"data":[
	{"id":1,"attributes":{"shop_name":"Bohne & Blatt","slug":"bohne","updatedAt":"2024-05-02T10:00:00.000Z",
		"address":{"street":"Venloer Str. 1","city":"Köln","city_section":"Ehrenfeld","zip_code":"50823"},
		"menu_section":{"id":7,"menu":[{"id":1,"menu_titel":"Kaffee","menu_block":[
			{"id":11,"text":"Espresso","price":"2,20 €"},
			{"id":12,"text":"Hafer Latte","subtext":"mit Hafermilch","price":"3,90 €","extra":{"vegan":true}}
		]}]}}},
	{"id":2,"attributes":{"shop_name":"Röstwerk","slug":"roestwerk","address":{"city":"Köln","city_section":"Südstadt","zip_code":"50677"}}},
	{"id":3,"attributes":{"shop_name":"Milchbar","address":{"city":"Köln","city_section":"Ehrenfeld"}}}
]}`

func newTestServer(t *testing.T, fake strapi.Finder) http.Handler {
	t.Helper()
	cfg, err := config.Load(context.Background(),
		config.WithoutSystemEnv(),
		config.WithEnvFile("testdata/does-not-exist.env"),
		config.WithEnvMap(map[string]string{
			"CAFE_WEB_TEMPLATES":   "../../templates",
			"CAFE_WEB_LOCALES":     "../../locales",
			"CAFE_WEB_CONTENT_DIR": "../../content",
			"CAFE_WEB_PUBLIC":      "../../public",
			"CAFE_WEB_DEV":         "true",
		}),
	)
	require.NoError(t, err)
	srv, err := newServer(cfg, zap.NewNop(), fake)
	require.NoError(t, err)
	return srv.routes()
}

func defaultFake() *strapitest.Fake {
	return strapitest.New().List("posts", testPosts)
}

// client replays cookies between requests like a browser.
type client struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, h http.Handler) *client {
	return &client{t: t, h: h, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) get(target string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, target, nil))
}

// post sends an htmx form post with the CSRF header taken from the cookie jar.
func (c *client) post(target string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	if ck, ok := c.cookies["csrf_token"]; ok {
		req.Header.Set("X-CSRF-Token", ck.Value)
	}
	return c.do(req)
}

func parse(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	return doc
}

func TestHealthzOK(t *testing.T) {
	h := newTestServer(t, defaultFake())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", strings.TrimSpace(rec.Body.String()))
}

func TestHomeRendersGridOfDefaultCity(t *testing.T) {
	c := newClient(t, newTestServer(t, defaultFake()))
	rec := c.get("/")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	doc := parse(t, rec)
	cards := doc.Find("#grid article.cafe-card[data-card]")
	assert.Equal(t, 3, cards.Length())
	assert.Equal(t, "1", cards.First().AttrOr("data-id", ""))
	assert.Equal(t, "Cafés in deiner Nähe", strings.TrimSpace(doc.Find("h1").First().Text()))
	assert.Contains(t, doc.Find("nav").Text(), "Startseite")
	assert.NotEmpty(t, doc.Find(`meta[name="csrf-token"]`).AttrOr("content", ""))
	assert.Equal(t, 1, doc.Find(`script[type="application/ld+json"]`).Length())

	assert.NotNil(t, c.cookies["CAFE_WEB_SESSION"])
	assert.NotNil(t, c.cookies["csrf_token"])
}

func TestHomeLocalizedNavEN(t *testing.T) {
	h := newTestServer(t, defaultFake())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parse(t, rec)
	assert.Equal(t, "en", doc.Find("html").AttrOr("lang", ""))
	assert.Contains(t, doc.Find("nav").Text(), "Home")
}

func TestToggleDetailOpensAndCloses(t *testing.T) {
	c := newClient(t, newTestServer(t, defaultFake()))
	require.Equal(t, http.StatusOK, c.get("/").Code)

	form := url.Values{"vw": {"1280"}, "tops": {"0,0,0"}}
	rec := c.post("/cafes/2/detail", form)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var trigger map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &trigger))
	require.Contains(t, trigger, "detail:open")
	assert.EqualValues(t, 2, trigger["detail:open"]["id"])
	assert.EqualValues(t, 3, trigger["detail:open"]["itemsPerRow"])

	doc := parse(t, rec)
	assert.Equal(t, "2", doc.Find("#grid").AttrOr("data-detail-id", ""))
	assert.Equal(t, "2", doc.Find("#detail").AttrOr("data-detail-for", ""))
	assert.Contains(t, doc.Find("#detail address").Text(), "50677")
	// detail row goes after the last card of the row
	assert.Equal(t, 0, doc.Find("#detail ~ article.cafe-card").Length())

	rec = c.post("/cafes/2/detail", form)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("HX-Trigger"), "detail:close")
	assert.Equal(t, 0, parse(t, rec).Find("#detail").Length())
}

func TestToggleDetailRequiresCSRF(t *testing.T) {
	c := newClient(t, newTestServer(t, defaultFake()))
	require.Equal(t, http.StatusOK, c.get("/").Code)

	req := httptest.NewRequest(http.MethodPost, "/cafes/1/detail", strings.NewReader("vw=1280"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := c.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestToggleDetailUnknownCafe(t *testing.T) {
	c := newClient(t, newTestServer(t, defaultFake()))
	require.Equal(t, http.StatusOK, c.get("/").Code)

	rec := c.post("/cafes/99/detail", url.Values{"vw": {"1280"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestReflowWithoutOpenDetailIsNoContent(t *testing.T) {
	c := newClient(t, newTestServer(t, defaultFake()))
	require.Equal(t, http.StatusOK, c.get("/").Code)

	rec := c.post("/grid/reflow", url.Values{"vw": {"640"}, "tops": {"0,300,600"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestReflowMovesOpenDetail(t *testing.T) {
	c := newClient(t, newTestServer(t, defaultFake()))
	require.Equal(t, http.StatusOK, c.get("/").Code)
	require.Equal(t, http.StatusOK, c.post("/cafes/1/detail", url.Values{"vw": {"1280"}, "tops": {"0,0,0"}}).Code)

	rec := c.post("/grid/reflow", url.Values{"vw": {"400"}, "tops": {"0,300,600"}})
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parse(t, rec)
	// one card per row: the detail row follows the first card directly
	assert.Equal(t, "1", doc.Find("#detail").Prev().AttrOr("data-id", ""))
}

func TestSectionPage(t *testing.T) {
	c := newClient(t, newTestServer(t, defaultFake()))
	rec := c.get("/stadt/K%C3%B6ln/Ehrenfeld")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doc := parse(t, rec)
	assert.Equal(t, "Cafés in Ehrenfeld, Köln", strings.TrimSpace(doc.Find("h1").First().Text()))
	assert.True(t, strings.HasSuffix(doc.Find(`link[rel="canonical"]`).AttrOr("href", ""), "/Ehrenfeld"))
}

func TestSearchAPI(t *testing.T) {
	c := newClient(t, newTestServer(t, defaultFake()))
	require.Equal(t, http.StatusOK, c.get("/").Code)

	rec := c.get("/api/search?q=ehren")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	var body struct {
		Sections []string `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"Ehrenfeld"}, body.Sections)

	rec = c.get("/api/search?q=" + strings.Repeat("x", maxQueryLength+1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchGoRedirectsWithoutHTMX(t *testing.T) {
	c := newClient(t, newTestServer(t, defaultFake()))
	require.Equal(t, http.StatusOK, c.get("/").Code)

	form := url.Values{"kind": {"section"}, "value": {"Südstadt"}, "csrf_token": {c.cookies["csrf_token"].Value}}
	req := httptest.NewRequest(http.MethodPost, "/search/go", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := c.do(req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/stadt/K%C3%B6ln/S%C3%BCdstadt", rec.Header().Get("Location"))
}

func TestSearchGoPushesURLForHTMX(t *testing.T) {
	c := newClient(t, newTestServer(t, defaultFake()))
	require.Equal(t, http.StatusOK, c.get("/").Code)

	rec := c.post("/search/go", url.Values{"kind": {"city"}, "value": {"Köln"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "/stadt/K%C3%B6ln", rec.Header().Get("HX-Push-Url"))
	assert.Equal(t, 1, parse(t, rec).Find("#directory").Length())

	rec = c.post("/search/go", url.Values{"kind": {"bogus"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchGoRedirectsHTMXOutsideDirectory(t *testing.T) {
	c := newClient(t, newTestServer(t, defaultFake()))
	require.Equal(t, http.StatusOK, c.get("/").Code)

	form := url.Values{"kind": {"city"}, "value": {"Köln"}}
	req := httptest.NewRequest(http.MethodPost, "/search/go", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Target", "page-search")
	req.Header.Set("X-CSRF-Token", c.cookies["csrf_token"].Value)
	rec := c.do(req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "/stadt/K%C3%B6ln", rec.Header().Get("HX-Redirect"))
	assert.Empty(t, rec.Header().Get("Location"))
}

func TestMenuPageAndItemToggle(t *testing.T) {
	c := newClient(t, newTestServer(t, defaultFake()))
	rec := c.get("/cafe/bohne")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	doc := parse(t, rec)
	assert.Equal(t, "bohne", doc.Find("article.menu-page").AttrOr("data-slug", ""))
	assert.Equal(t, "2 Artikel", strings.TrimSpace(doc.Find("p.menu-count").Text()))
	assert.Equal(t, 2, doc.Find("li.menu-item").Length())
	assert.Equal(t, 1, doc.Find(".debug-link").Length())

	rec = c.post("/cafe/bohne/items/7/1/12", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "true", parse(t, rec).Find("button").AttrOr("aria-pressed", ""))
	var trigger map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &trigger))
	assert.Equal(t, true, trigger["menu:selection"]["selected"])
	assert.EqualValues(t, 1, trigger["menu:selection"]["count"])

	rec = c.post("/cafe/bohne/items/8/1/12", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMenuPageErrorsStayWithTheirCafe(t *testing.T) {
	fake := strapitest.New().OnFind("posts", func(_ context.Context, q strapi.Query) (string, error) {
		if strings.Contains(q.Encode(), "filters[slug][$eq]=roestwerk") {
			return `{"data":[{"id":2,"attributes":{"shop_name":"Röstwerk","slug":"roestwerk"}}]}`, nil
		}
		return testPosts, nil
	})
	c := newClient(t, newTestServer(t, fake))

	rec := c.get("/cafe/bohne")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0, parse(t, rec).Find(`[role="alert"]`).Length())

	rec = c.get("/cafe/roestwerk")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Keine Menüdaten für dieses Café verfügbar", strings.TrimSpace(parse(t, rec).Find(`[role="alert"]`).Text()))

	rec = c.get("/cafe/bohne")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doc := parse(t, rec)
	assert.Equal(t, 0, doc.Find(`[role="alert"]`).Length())
	assert.Equal(t, 2, doc.Find("li.menu-item").Length())
}

func TestMenuPageImageFromContentHost(t *testing.T) {
	fake := strapitest.New().List("posts", `{"data":[{"id":1,"attributes":{"shop_name":"Bohne & Blatt","slug":"bohne",
		"shop_img":[{"url":"/uploads/bohne.jpg"}],"address":{"city":"Köln","city_section":"Ehrenfeld"}}}]}`)
	c := newClient(t, newTestServer(t, fake))

	rec := c.get("/cafe/bohne")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doc := parse(t, rec)
	assert.Equal(t, "http://localhost:1337/uploads/bohne.jpg", doc.Find(`meta[property="og:image"]`).AttrOr("content", ""))
}

func TestMenuPageUnknownSlug(t *testing.T) {
	c := newClient(t, newTestServer(t, strapitest.New()))
	rec := c.get("/cafe/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "404", parse(t, rec).Find("section.error-page").AttrOr("data-status", ""))
}

func TestMenuDebugPage(t *testing.T) {
	c := newClient(t, newTestServer(t, defaultFake()))
	require.Equal(t, http.StatusOK, c.get("/cafe/bohne").Code)

	rec := c.get("/cafe/bohne/debug")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parse(t, rec)
	assert.Equal(t, "noindex", doc.Find(`meta[name="robots"]`).AttrOr("content", ""))
	assert.Contains(t, doc.Text(), "bohne")
}

func TestContentPages(t *testing.T) {
	c := newClient(t, newTestServer(t, strapitest.New()))

	rec := c.get("/impressum")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doc := parse(t, rec)
	assert.Equal(t, "Impressum", strings.TrimSpace(doc.Find("article.content-page h1").Text()))
	assert.Equal(t, "Anbieter", doc.Find("article.content-page .body h2").First().Text())

	rec = c.get("/menu/espresso")
	require.Equal(t, http.StatusOK, rec.Code)
	doc = parse(t, rec)
	assert.Equal(t, "Espresso", strings.TrimSpace(doc.Find("article.content-page h1").Text()))
	related := doc.Find("aside.related")
	assert.Equal(t, 1, related.Find(`a[href="/menu/cappuccino"]`).Length())
	assert.Equal(t, 0, related.Find(`a[href="/menu/espresso"]`).Length())

	assert.Equal(t, http.StatusNotFound, c.get("/menu/tee").Code)
}

func TestSitemapAndRobots(t *testing.T) {
	c := newClient(t, newTestServer(t, defaultFake()))

	rec := c.get("/sitemap.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "xml")
	assert.NotEmpty(t, rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), "<loc>https://cafefinder.de/cafe/bohne</loc>")
	assert.Contains(t, rec.Body.String(), "<loc>https://cafefinder.de/menu/espresso</loc>")

	rec = c.get("/robots.txt")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sitemap: https://cafefinder.de/sitemap.xml")
}

func TestNotFoundPage(t *testing.T) {
	c := newClient(t, newTestServer(t, defaultFake()))

	rec := c.get("/does/not/exist")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "404", parse(t, rec).Find("section.error-page").AttrOr("data-status", ""))

	req := httptest.NewRequest(http.MethodGet, "/does/not/exist", nil)
	req.Header.Set("Accept", "application/json")
	rec = c.do(req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestAssetsServed(t *testing.T) {
	c := newClient(t, newTestServer(t, defaultFake()))
	rec := c.get("/assets/js/grid.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/grid/reflow")
}
