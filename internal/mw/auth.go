package mw

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const StaffCtxKey contextKey = "staff_id"

// Claims is the token payload issued at staff login.
type Claims struct {
	jwt.RegisteredClaims
	StaffID string `json:"staff_id"`
}

// StaffID returns the authenticated staff id stored by AuthMiddleware.
func StaffID(ctx context.Context) string {
	id, _ := ctx.Value(StaffCtxKey).(string)
	return id
}

func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid token format", http.StatusUnauthorized)
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (any, error) {
				return []byte(jwtSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			if claims.StaffID == "" {
				http.Error(w, "staff_id not found in token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), StaffCtxKey, claims.StaffID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
