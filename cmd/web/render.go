package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"cafefinder.de/web/internal/cafe"
	"cafefinder.de/web/internal/format"
	handlersPkg "cafefinder.de/web/internal/handlers"
	"cafefinder.de/web/internal/i18n"
	"cafefinder.de/web/internal/observability"
)

// views holds the parsed templates. Every file under pages/ becomes its own
// template set on top of layouts/ and partials/, so each page can define
// "content" without clashing with the others.
type views struct {
	dir   string
	dev   bool
	funcs template.FuncMap

	mu    sync.RWMutex
	cache *templateSet
}

type templateSet struct {
	shared *template.Template
	pages  map[string]*template.Template
}

func newViews(dir string, dev bool, funcs template.FuncMap) *views {
	return &views{dir: dir, dev: dev, funcs: funcs}
}

func templateFuncs(bundle *i18n.Bundle) template.FuncMap {
	return template.FuncMap{
		"now": time.Now,
		"t": func(lang, key string, args ...any) string {
			return bundle.T(lang, key, args...)
		},
		"date": format.FmtDate,
		// values are produced by json.Marshal, never from user input
		"jsonld": func(s string) template.JS { return template.JS(s) },
		"join":   strings.Join,
		"add":    func(a, b int) int { return a + b },
		"upper":  strings.ToUpper,
		// pair passes a range element together with the enclosing data to a partial
		"pair": func(item, parent any) map[string]any {
			return map[string]any{"Item": item, "Parent": parent}
		},
		"menuItem": func(page handlersPkg.MenuData, categoryID int, item cafe.MenuItem) handlersPkg.MenuItemData {
			return handlersPkg.MenuItemData{
				Slug:       page.Slug,
				MenuID:     page.MenuID,
				CategoryID: categoryID,
				Item:       item,
				CSRFToken:  page.CSRFToken,
				Lang:       page.Lang,
			}
		},
		"pick": func(kind string, value, parent any) map[string]any {
			return map[string]any{"Kind": kind, "Value": value, "Parent": parent}
		},
	}
}

// load parses all templates and caches the result.
func (v *views) load() (*templateSet, error) {
	shared, err := v.parseDirs("layouts", "partials")
	if err != nil {
		return nil, err
	}
	pageFiles, err := v.collect("pages")
	if err != nil {
		return nil, err
	}
	if len(pageFiles) == 0 {
		return nil, fmt.Errorf("no page templates found under %s", filepath.Join(v.dir, "pages"))
	}
	set := &templateSet{shared: shared, pages: map[string]*template.Template{}}
	for _, file := range pageFiles {
		clone, err := shared.Clone()
		if err != nil {
			return nil, err
		}
		t, err := clone.ParseFiles(file)
		if err != nil {
			return nil, err
		}
		set.pages[strings.TrimSuffix(filepath.Base(file), ".tmpl")] = t
	}
	v.mu.Lock()
	v.cache = set
	v.mu.Unlock()
	return set, nil
}

// current returns the cached templates. In dev mode, templates are reparsed
// on each call.
func (v *views) current() (*templateSet, error) {
	if v.dev {
		return v.load()
	}
	v.mu.RLock()
	set := v.cache
	v.mu.RUnlock()
	if set != nil {
		return set, nil
	}
	return v.load()
}

func (v *views) parseDirs(dirs ...string) (*template.Template, error) {
	var files []string
	for _, d := range dirs {
		found, err := v.collect(d)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found under %s", v.dir)
	}
	return template.New("_root").Funcs(v.funcs).ParseFiles(files...)
}

// collect walks dir recursively. ParseGlob doesn't support **.
func (v *views) collect(dir string) ([]string, error) {
	root := filepath.Join(v.dir, dir)
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".tmpl") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// renderPage executes the base layout with the named page.
func (s *server) renderPage(w http.ResponseWriter, r *http.Request, name string, data any) {
	s.renderPageStatus(w, r, http.StatusOK, name, data)
}

func (s *server) renderPageStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	set, err := s.views.current()
	if err != nil {
		s.templateError(w, r, name, err)
		return
	}
	t, ok := set.pages[name]
	if !ok {
		s.templateError(w, r, name, fmt.Errorf("page template %q not found", name))
		return
	}
	s.execute(w, r, status, t, "base", data)
}

// renderTemplate executes a fragment from the shared partials.
func (s *server) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	set, err := s.views.current()
	if err != nil {
		s.templateError(w, r, name, err)
		return
	}
	s.execute(w, r, http.StatusOK, set.shared, name, data)
}

func (s *server) execute(w http.ResponseWriter, r *http.Request, status int, t *template.Template, name string, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		s.templateError(w, r, name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *server) templateError(w http.ResponseWriter, r *http.Request, name string, err error) {
	observability.FromContext(r.Context()).Error("render template", zap.String("template", name), zap.Error(err))
	msg := "template error"
	if s.cfg.Server.Dev {
		msg = fmt.Sprintf("template error: %v", err)
	}
	http.Error(w, msg, http.StatusInternalServerError)
}
