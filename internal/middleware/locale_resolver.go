package middleware

import (
	"context"
	"net/http"

	"cafefinder.de/web/internal/i18n"
)

const localeCookieName = "hl"

// Locale resolves the preferred language from ?hl=, the hl cookie or
// Accept-Language, in that order, and stores it in the session.
func Locale(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), ctxKeyLocaleFB, bundle.Fallback())
			r = r.WithContext(ctx)
			s := GetSession(r)
			if q, ok := bundle.Normalize(r.URL.Query().Get("hl")); ok {
				if s.Locale != q {
					s.Locale = q
					s.MarkDirty()
				}
				http.SetCookie(w, &http.Cookie{Name: localeCookieName, Value: q, Path: "/", SameSite: http.SameSiteLaxMode})
			} else if _, ok := bundle.Normalize(s.Locale); !ok {
				if c, err := r.Cookie(localeCookieName); err == nil {
					if l, ok := bundle.Normalize(c.Value); ok {
						s.Locale = l
					}
				}
				if s.Locale == "" || !bundle.IsSupported(s.Locale) {
					s.Locale = bundle.Resolve(r.Header.Get("Accept-Language"))
				}
				s.MarkDirty()
			}
			w.Header().Set("Content-Language", s.Locale)
			next.ServeHTTP(w, r)
		})
	}
}

// Lang returns the current language from the session or the bundle fallback ("de").
func Lang(r *http.Request) string {
	if s := GetSession(r); s.Locale != "" {
		return s.Locale
	}
	if fb, ok := r.Context().Value(ctxKeyLocaleFB).(string); ok && fb != "" {
		return fb
	}
	return "de"
}
