package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sort"

	"go.uber.org/zap"

	"cafefinder.de/web/internal/cafe"
	handlersPkg "cafefinder.de/web/internal/handlers"
	"cafefinder.de/web/internal/httpx"
	"cafefinder.de/web/internal/media"
	mw "cafefinder.de/web/internal/middleware"
	"cafefinder.de/web/internal/nav"
	"cafefinder.de/web/internal/observability"
	"cafefinder.de/web/internal/seo"
)

// menuHandler renders the menu of a café looked up by slug.
func (s *server) menuHandler(w http.ResponseWriter, r *http.Request) {
	slug := pathParam(r, "slug")
	ctx := r.Context()
	v := s.visitor(r)
	post := v.Menu.FetchCafeBySlug(ctx, slug)
	if post == nil {
		if msg := v.Menu.ErrFor(slug); msg != "" && !v.Menu.Missing(slug) {
			s.renderErrorPage(w, r, http.StatusBadGateway, msg)
			return
		}
		s.notFoundHandler(w, r)
		return
	}

	categories := v.Menu.MenuForCafe(slug)
	data, err := s.seo.Fetch(ctx, slug, "posts")
	if err != nil {
		observability.FromContext(ctx).Warn("menu page without seo record", zap.String("slug", slug), zap.Error(err))
	}
	if data == nil {
		data = seo.FromPost(*post, nil)
	}
	if data.Description == "" {
		data.Description = s.t(r, "menu.description", post.ShopName, post.City())
	}
	if data.Canonical == "" {
		data.Canonical = r.URL.Path
	}
	// uploads live on the content API host, not on the site
	data.Image = media.ImageURL(s.cfg.Strapi.URL, data.Image)
	head := seo.NewHead(seo.GenerateMetaTags(data, s.cfg.Site.URL, r.URL.Path))
	pageURL := s.cfg.Site.URL + r.URL.Path
	image := media.ImageURL(s.cfg.Strapi.URL, post.Image())
	head.JSONLD = append(head.JSONLD,
		seo.JSON(seo.CafeOrCoffeeShop(*post, s.cfg.Site.URL+nav.CafePath(post.ID), image, pageURL)),
		seo.JSON(seo.Menu(s.t(r, "menu.title", post.ShopName), pageURL, categories)),
	)

	crumbs := nav.Directory(post.City(), post.Section(), post.ID, post.ShopName)
	crumbs[len(crumbs)-1].Active = false
	crumbs = append(crumbs, nav.Crumb{Href: r.URL.Path, LabelKey: "nav.menu", Active: true})

	card := handlersPkg.CardOf(*post, s.cfg.Strapi.URL)
	vm := handlersPkg.MenuData{
		Layout:     s.layout(r, head, crumbs),
		Slug:       slug,
		Cafe:       &card,
		Categories: categories,
		ItemCount:  cafe.CountItems(categories),
		Selected:   handlersPkg.CountSelected(categories),
		Err:        v.Menu.ErrFor(slug),
	}
	if post.MenuSection != nil {
		vm.MenuID = post.MenuSection.ID
	}
	s.renderPage(w, r, "menu", vm)
}

// toggleItemHandler flips the selection of a menu item.
func (s *server) toggleItemHandler(w http.ResponseWriter, r *http.Request) {
	slug := pathParam(r, "slug")
	menuID, okMenu := intParam(r, "menu")
	categoryID, okCategory := indexParam(r, "category")
	itemID, okItem := indexParam(r, "item")
	if !okMenu || !okCategory || !okItem {
		s.writeError(w, r, httpx.BadRequest("invalid menu item"))
		return
	}
	v := s.visitor(r)
	item, found := findItem(v.Menu.MenuForCafe(slug), categoryID, itemID)
	if post := v.Menu.CurrentCafe(slug); !found || post == nil || post.MenuSection == nil || post.MenuSection.ID != menuID {
		s.writeError(w, r, httpx.NotFound("menu item not found").WithDetails(map[string]any{
			"menu": menuID, "category": categoryID, "item": itemID,
		}))
		return
	}
	item.Selected = v.Menu.ToggleItemSelection(menuID, categoryID, itemID)
	if !mw.IsHTMX(r.Context()) {
		mw.Redirect(w, r, nav.MenuPath(slug))
		return
	}
	mw.Trigger(w, "menu:selection", map[string]any{
		"item":     itemID,
		"selected": item.Selected,
		"count":    handlersPkg.CountSelected(v.Menu.MenuForCafe(slug)),
	})
	s.renderTemplate(w, r, "menu_item", handlersPkg.MenuItemData{
		Slug:       slug,
		MenuID:     menuID,
		CategoryID: categoryID,
		Item:       item,
		CSRFToken:  mw.CSRFToken(r),
		Lang:       mw.Lang(r),
	})
}

// menuDebugHandler shows the lookup log of the menu store. Dev only.
func (s *server) menuDebugHandler(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Server.Dev {
		s.notFoundHandler(w, r)
		return
	}
	slug := pathParam(r, "slug")
	v := s.visitor(r)
	if r.URL.Query().Get("clear") == "1" {
		v.Menu.ClearLogs()
		v.Menu.ClearError()
	}
	dbg := v.Menu.Debug()
	keys := make([]string, 0, len(dbg.RawResponses))
	for k := range dbg.RawResponses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	raw := make([]handlersPkg.RawResponse, 0, len(keys))
	for _, k := range keys {
		var buf bytes.Buffer
		if err := json.Indent(&buf, dbg.RawResponses[k], "", "  "); err != nil {
			buf.Reset()
			buf.Write(dbg.RawResponses[k])
		}
		raw = append(raw, handlersPkg.RawResponse{Key: k, Body: buf.String()})
	}
	head := s.pageHead(r, s.t(r, "debug.title", slug), "", "")
	head.Meta = append(head.Meta, seo.Tag{Name: "robots", Content: "noindex"})
	s.renderPage(w, r, "debug", handlersPkg.DebugData{
		Layout: s.layout(r, head, nil),
		Slug:   slug,
		Logs:   dbg.Logs,
		Errors: dbg.Errors,
		Raw:    raw,
	})
}

func findItem(categories []cafe.MenuCategory, categoryID, itemID int) (cafe.MenuItem, bool) {
	for _, c := range categories {
		if c.ID != categoryID {
			continue
		}
		for _, it := range c.Items {
			if it.ID == itemID {
				return it, true
			}
		}
	}
	return cafe.MenuItem{}, false
}
