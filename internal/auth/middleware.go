package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Authenticate rejects requests without a valid bearer token.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := g.Resolve(r.Context(), BearerToken(r.Header.Get("Authorization")))
		if err != nil {
			slog.DebugContext(r.Context(), "authentication failed", "error", err, "path", r.URL.Path)
			unauthorized(w, "not authorized, token failed")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireAdmin must run after Authenticate. Non-admins get 401.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok || !id.IsAdmin() {
			unauthorized(w, "not authorized as an admin")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorBody{Message: message, Code: "unauthenticated"})
}
