package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"comanda/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

// writeError maps the service error taxonomy onto HTTP statuses.
// Validation problems are 422 with the message intact; already-processed
// claims are 409 so the UI can say someone else took the order; exhausted
// admission retries are 503 because the client may simply try again.
func writeError(w http.ResponseWriter, err error) {
	var v *service.ValidationError
	switch {
	case errors.As(err, &v):
		http.Error(w, v.Msg, http.StatusUnprocessableEntity)
	case errors.Is(err, service.ErrAlreadyProcessed):
		http.Error(w, "pending order was already accepted or rejected", http.StatusConflict)
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, service.ErrInFlight):
		http.Error(w, "a request with this idempotency key is still being processed, retry later", http.StatusConflict)
	case errors.Is(err, service.ErrVersionConflict):
		http.Error(w, "order was modified concurrently, refresh and retry", http.StatusConflict)
	case errors.Is(err, service.ErrRetriesExhausted):
		http.Error(w, "system busy, try again", http.StatusServiceUnavailable)
	case errors.Is(err, service.ErrLoginTaken):
		http.Error(w, "login already exists", http.StatusConflict)
	case errors.Is(err, service.ErrInvalidCredentials):
		http.Error(w, "invalid login or password", http.StatusUnauthorized)
	default:
		slog.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// runIdempotent executes fn, routing through the idempotency ledger when
// the client supplied an Idempotency-Key header. Replayed calls get the
// originally stored response body, byte for byte.
func runIdempotent(w http.ResponseWriter, r *http.Request, idem *service.IdempotencyService, operation string, fn func(r *http.Request) (any, error)) {
	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		result, err := fn(r)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
		return
	}

	payload, _, err := idem.Execute(r.Context(), key, operation, func(ctx context.Context) (any, error) {
		return fn(r.WithContext(ctx))
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(payload)
}
