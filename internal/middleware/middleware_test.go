package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafefinder.de/web/internal/i18n"
)

const testKey = "0123456789abcdef0123456789abcdef"

func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func TestSessionIssuesULIDAndRoundTrips(t *testing.T) {
	var seen []string
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, GetSession(r).ID)
		_, _ = w.Write([]byte("ok"))
	}), Session(SessionConfig{SigningKey: testKey}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	_, err := ulid.ParseStrict(seen[0])
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, seen[0], seen[1])
	assert.Empty(t, rec.Result().Cookies(), "clean session should not be rewritten")
}

func TestSessionRejectsTamperedCookie(t *testing.T) {
	var id string
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = GetSession(r).ID
	}), Session(SessionConfig{SigningKey: testKey}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	first := id
	cookie := sessionCookie(t, rec)

	payload, sig, _ := strings.Cut(cookie.Value, ".")
	cookie.Value = payload + "x." + sig
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, first, id)
	sessionCookie(t, rec)
}

func TestCSRFRejectsAndAccepts(t *testing.T) {
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), Session(SessionConfig{SigningKey: testKey}), HTMX, CSRF(false))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	var sess, csrf *http.Cookie
	for _, c := range rec.Result().Cookies() {
		switch c.Name {
		case sessionCookieName:
			sess = c
		case csrfCookieName:
			csrf = c
		}
	}
	require.NotNil(t, sess)
	require.NotNil(t, csrf)

	// missing token
	req := httptest.NewRequest(http.MethodPost, "/detail/close", nil)
	req.Header.Set("HX-Request", "true")
	req.AddCookie(sess)
	req.AddCookie(csrf)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"invalid CSRF token"`)

	// header token
	req = httptest.NewRequest(http.MethodPost, "/detail/close", nil)
	req.Header.Set(csrfHeaderName, csrf.Value)
	req.AddCookie(sess)
	req.AddCookie(csrf)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// form token
	form := url.Values{csrfFormField: {csrf.Value}}
	req = httptest.NewRequest(http.MethodPost, "/search/go", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(sess)
	req.AddCookie(csrf)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLocaleResolution(t *testing.T) {
	bundle, err := i18n.Load("../../locales", "de", []string{"de", "en"})
	require.NoError(t, err)
	var lang string
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang = Lang(r)
	}), Session(SessionConfig{SigningKey: testKey}), Locale(bundle))

	cases := []struct {
		name   string
		target string
		accept string
		cookie string
		want   string
	}{
		{"default", "/", "", "", "de"},
		{"accept-language", "/", "en-US,en;q=0.8", "", "en"},
		{"cookie beats header", "/", "de", "en", "en"},
		{"query beats cookie", "/?hl=DE", "en", "en", "de"},
		{"unsupported query ignored", "/?hl=fr", "en", "", "en"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.accept != "" {
				req.Header.Set("Accept-Language", tc.accept)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: localeCookieName, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, lang)
			assert.Equal(t, tc.want, rec.Header().Get("Content-Language"))
		})
	}
}

func TestHTMXHelpers(t *testing.T) {
	rec := httptest.NewRecorder()
	Trigger(rec, "detail:opened", map[string]any{"id": 7})
	assert.JSONEq(t, `{"detail:opened":{"id":7}}`, rec.Header().Get("HX-Trigger"))

	h := HTMX(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Redirect(w, r, "/stadt/Köln")
	}))
	req := httptest.NewRequest(http.MethodPost, "/search/go", nil)
	req.Header.Set("HX-Request", "true")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "/stadt/Köln", rec.Header().Get("HX-Redirect"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search/go", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}
