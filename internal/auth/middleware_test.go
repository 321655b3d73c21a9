package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims Claims, secret []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestParseJWTValidToken(t *testing.T) {
	token := signToken(t, Claims{
		Email: "carer@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	claims, err := ParseJWT(token, testSecret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("subject = %q, want user-123", claims.Subject)
	}
	if claims.Email != "carer@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
}

func TestParseJWTRejections(t *testing.T) {
	valid := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}

	cases := []struct {
		name   string
		token  string
		secret []byte
	}{
		{"empty token", "", testSecret},
		{"wrong secret", signToken(t, valid, []byte("other-secret")), testSecret},
		{"missing subject", signToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}, testSecret), testSecret},
		{"expired", signToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}, testSecret), testSecret},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseJWT(tc.token, tc.secret); err == nil {
				t.Errorf("expected rejection")
			}
		})
	}
}

func TestMiddlewareWrap(t *testing.T) {
	middleware := NewMiddleware(testSecret)
	var gotUserID string
	handler := middleware.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// No token.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patients", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	// Malformed header.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	req.Header.Set("Authorization", "Token abc")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("malformed header: status = %d, want 401", rec.Code)
	}

	// Valid token.
	token := signToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-9",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}, testSecret)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/patients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200", rec.Code)
	}
	if gotUserID != "user-9" {
		t.Errorf("user id in context = %q, want user-9", gotUserID)
	}
}
