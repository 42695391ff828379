package middleware

import (
	"net/http"
	"strings"

	"cafefinder.de/web/internal/httpx"
)

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	if IsHTMX(r.Context()) || strings.Contains(r.Header.Get("Accept"), "application/json") {
		httpx.WriteError(r.Context(), w, httpx.NewError(strings.ToLower(strings.ReplaceAll(http.StatusText(code), " ", "_")), msg, code))
		return
	}
	http.Error(w, msg, code)
}
