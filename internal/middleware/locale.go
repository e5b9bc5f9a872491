package middleware

import (
	"net/http"

	"serviceinfo/internal/i18n"
)

// Locale negotiates the response language from ?lang= and Accept-Language
// and stores it on the request context.
func Locale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale := i18n.Negotiate(r.Header.Get("Accept-Language"), r.URL.Query().Get("lang"))
		w.Header().Set("Content-Language", locale)
		next.ServeHTTP(w, r.WithContext(i18n.WithLocale(r.Context(), locale)))
	})
}
