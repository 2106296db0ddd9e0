// Package api implements the onepage REST API using chi.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// LocalUser is the viewer of every request when authentication is disabled.
const LocalUser = "local"

// Auth configures viewer resolution. With Enabled false every request is
// made by LocalUser; otherwise a Bearer token is looked up in Tokens, which
// maps tokens to user ids.
type Auth struct {
	Enabled bool
	Tokens  map[string]string
}

type viewerKey struct{}

// Viewer returns the user id resolved for the request, or "" for an
// anonymous request.
func Viewer(ctx context.Context) string {
	v, _ := ctx.Value(viewerKey{}).(string)
	return v
}

// AuthMiddleware resolves the viewer of each request. A request without an
// Authorization header continues anonymously; one carrying an unknown
// token is rejected.
func AuthMiddleware(auth Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Enabled {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), viewerKey{}, LocalUser)))
				return
			}
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			user := auth.Tokens[token]
			if !ok || token == "" || user == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), viewerKey{}, user)))
		})
	}
}

// RequireViewer rejects anonymous requests.
func RequireViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Viewer(r.Context()) == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CORS allows browser clients from origins to call the API. An empty list
// allows any origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
