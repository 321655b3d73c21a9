package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Middleware validates user bearer tokens on caregiver-facing routes.
// Device routes authenticate with their own credential headers and must
// not pass through here.
type Middleware struct {
	secret []byte
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(secret []byte) *Middleware {
	return &Middleware{secret: secret}
}

// Wrap enforces a valid bearer token and stores the user identity on the
// request context.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearer(r)
		if token == "" {
			unauthorized(w, "missing token")
			return
		}
		claims, err := ParseJWT(token, m.secret)
		if err != nil {
			unauthorized(w, "invalid or expired token")
			return
		}
		ctx := WithUser(r.Context(), claims.Subject, claims.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func extractBearer(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
