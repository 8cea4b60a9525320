package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func staffClaims(staffID string, exp time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   staffID,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		StaffID: staffID,
	}
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "test-secret"

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(StaffID(r.Context())))
	})
	h := AuthMiddleware(secret)(next)

	valid := signToken(t, secret, staffClaims("abc-123", time.Now().Add(time.Hour)))
	expired := signToken(t, secret, staffClaims("abc-123", time.Now().Add(-time.Hour)))
	wrongSecret := signToken(t, "other-secret", staffClaims("abc-123", time.Now().Add(time.Hour)))
	noStaff := signToken(t, secret, staffClaims("", time.Now().Add(time.Hour)))
	wrongAlg := func() string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS512, staffClaims("abc-123", time.Now().Add(time.Hour)))
		signed, err := token.SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		return signed
	}()

	tests := []struct {
		name       string
		authHeader string
		wantCode   int
		wantBody   string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, "abc-123"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"not bearer", "Basic " + valid, http.StatusUnauthorized, ""},
		{"garbage token", "Bearer not.a.token", http.StatusUnauthorized, ""},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + wrongSecret, http.StatusUnauthorized, ""},
		{"wrong signing method", "Bearer " + wrongAlg, http.StatusUnauthorized, ""},
		{"missing staff claim", "Bearer " + noStaff, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/pending-orders", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
