package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"comanda/internal/mw"
	"comanda/internal/service"
)

// SubmitPendingHandler is the customer-facing QR submission endpoint.
func SubmitPendingHandler(pendingSvc *service.PendingOrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		pending, err := pendingSvc.Submit(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}

		slog.Info("pending order submitted", "pending_id", pending.ID, "origin", pending.Origin, "subtotal_cents", pending.SubtotalCents)
		writeJSON(w, http.StatusCreated, pending)
	}
}

func ListPendingHandler(pendingSvc *service.PendingOrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pendings, err := pendingSvc.ListPending(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		if len(pendings) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, pendings)
	}
}

// AcceptPendingHandler converts a pending entry into a numbered order.
// Honors the Idempotency-Key header so a staff client retry after a
// timeout gets the original order back instead of an "already accepted"
// error.
func AcceptPendingHandler(admissionSvc *service.AdmissionService, idemSvc *service.IdempotencyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid pending order id", http.StatusBadRequest)
			return
		}
		staffID := mw.StaffID(r.Context())

		runIdempotent(w, r, idemSvc, "pending.accept", func(r *http.Request) (any, error) {
			order, err := admissionSvc.AcceptPending(r.Context(), id)
			if err != nil {
				return nil, err
			}
			slog.Info("pending order accepted", "pending_id", id, "order_number", order.Number, "staff", staffID)
			return order, nil
		})
	}
}

type rejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

func RejectPendingHandler(pendingSvc *service.PendingOrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid pending order id", http.StatusBadRequest)
			return
		}

		var req rejectRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		pending, err := pendingSvc.Reject(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}

		slog.Info("pending order rejected", "pending_id", id, "staff", mw.StaffID(r.Context()), "reason", req.Reason)
		writeJSON(w, http.StatusOK, pending)
	}
}
