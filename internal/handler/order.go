package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"comanda/internal/model"
	"comanda/internal/mw"
	"comanda/internal/service"
)

// CreateOrderHandler is the direct admission path for counter and kiosk
// orders; it skips the queue but shares the sequence, retry loop and
// idempotency mechanics with the accept path.
func CreateOrderHandler(admissionSvc *service.AdmissionService, idemSvc *service.IdempotencyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		staffID := mw.StaffID(r.Context())

		runIdempotent(w, r, idemSvc, "orders.create", func(r *http.Request) (any, error) {
			order, err := admissionSvc.Create(r.Context(), req)
			if err != nil {
				return nil, err
			}
			slog.Info("order created", "order_number", order.Number, "origin", order.Origin, "staff", staffID)
			return order, nil
		})
	}
}

// OrderStatusHandler resolves either a pending-order id or a real-order
// id to the unified status view used for customer polling.
func OrderStatusHandler(statusSvc *service.StatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		view, err := statusSvc.Resolve(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

type transitionRequest struct {
	Status  model.Status `json:"status"`
	Version int64        `json:"version"`
}

// TransitionOrderHandler moves an order through the status machine.
// The request must carry the version the client last saw; a stale
// version is rejected with a conflict.
func TransitionOrderHandler(statusSvc *service.StatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		var req transitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		order, err := statusSvc.Transition(r.Context(), id, req.Status, req.Version)
		if err != nil {
			writeError(w, err)
			return
		}

		slog.Info("order status changed", "order_number", order.Number, "status", order.Status, "staff", mw.StaffID(r.Context()))
		writeJSON(w, http.StatusOK, order)
	}
}
