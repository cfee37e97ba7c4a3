package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// SessionCookie holds the token issued at login.
const SessionCookie = "session"

// AuthMiddleware sprawdza, czy użytkownik ma ważne cookie sesji
func AuthMiddleware(session string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		// Strona logowania i zasoby statyczne są dostępne bez logowania
		if r.URL.Path == "/login" ||
			r.URL.Path == "/auth/login" ||
			strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(SessionCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(session)) != 1 {
			// Zapytania API dostają 401
			if strings.HasPrefix(r.URL.Path, "/api/") ||
				r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				r.Header.Get("Content-Type") == "application/json" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			// Dla zwykłych żądań przekieruj na login
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
