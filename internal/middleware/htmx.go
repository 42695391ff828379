package middleware

import (
	"encoding/json"
	"net/http"
)

// HTMX marks requests coming from htmx so handlers can answer with fragments.
func HTMX(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		is := r.Header.Get("HX-Request") == "true"
		if is {
			w.Header().Add("Vary", "HX-Request")
		}
		ctx := WithHTMX(r.Context(), is)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Trigger sets the HX-Trigger response header to fire event with detail on the client.
func Trigger(w http.ResponseWriter, event string, detail any) {
	payload := map[string]any{event: detail}
	b, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("HX-Trigger", event)
		return
	}
	w.Header().Set("HX-Trigger", string(b))
}

// PushURL updates the browser location after an htmx swap.
func PushURL(w http.ResponseWriter, url string) {
	w.Header().Set("HX-Push-Url", url)
}

// Redirect sends the client to url, using HX-Redirect for htmx requests.
func Redirect(w http.ResponseWriter, r *http.Request, url string) {
	if IsHTMX(r.Context()) {
		w.Header().Set("HX-Redirect", url)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}
