package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"comanda/internal/mw"
	"comanda/internal/service"
)

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func RegisterStaffHandler(authSvc *service.AuthService, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		if req.Login == "" || req.Password == "" {
			http.Error(w, "login and password required", http.StatusBadRequest)
			return
		}

		staff, err := authSvc.Register(r.Context(), req.Login, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}

		if err := issueToken(w, secret, staff.ID.String()); err != nil {
			http.Error(w, "token generation failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func LoginStaffHandler(authSvc *service.AuthService, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		staff, err := authSvc.Authenticate(r.Context(), req.Login, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}

		if err := issueToken(w, secret, staff.ID.String()); err != nil {
			http.Error(w, "token generation failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func issueToken(w http.ResponseWriter, secret, staffID string) error {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mw.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   staffID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
		StaffID: staffID,
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return err
	}
	w.Header().Set("Authorization", "Bearer "+signed)
	return nil
}
