package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"comanda/internal/model"
)

// maxAdmissionAttempts bounds the retry loop around number assignment
// and persistence. Only uniqueness conflicts are retried; everything
// else propagates on the first attempt.
const maxAdmissionAttempts = 3

type sequencer interface {
	Next(ctx context.Context) (int64, error)
}

// EventPublisher receives committed orders for downstream consumers
// (kitchen displays, notifications). Publishing is best effort and never
// fails an admission.
type EventPublisher interface {
	OrderCreated(ctx context.Context, order *model.Order, pendingID *uuid.UUID) error
}

// AdmissionService turns validated input into a persisted, numbered
// order. Each attempt runs in its own transaction: a failed attempt
// rolls back in full, so no half-assigned number or orphaned queue claim
// survives into the next attempt.
type AdmissionService struct {
	db        *sql.DB
	catalog   productCatalog
	sequences sequencer
	pending   *PendingOrderService
	events    EventPublisher
}

func NewAdmissionService(db *sql.DB, catalog productCatalog, sequences sequencer, pending *PendingOrderService, events EventPublisher) *AdmissionService {
	return &AdmissionService{db: db, catalog: catalog, sequences: sequences, pending: pending, events: events}
}

// Create admits a direct (non-queued) order: validate and price from the
// catalog, check the payment sum, then assign a number and persist under
// the bounded retry loop.
func (s *AdmissionService) Create(ctx context.Context, req CreateOrderRequest) (*model.Order, error) {
	if err := validateOrigin(req.Origin, req.TableNumber); err != nil {
		return nil, err
	}

	items, total, err := priceItems(ctx, s.catalog, req.Items)
	if err != nil {
		return nil, err
	}
	if err := validatePayments(req.Payments, total); err != nil {
		return nil, err
	}

	order, err := withRetry(ctx, func(ctx context.Context) (*model.Order, error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		order := newOrder(req.Origin, req.TableNumber, req.CustomerName, req.Note, items, req.Payments, total)
		if err := s.persistNumbered(ctx, tx, order); err != nil {
			return nil, err
		}

		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit tx: %w", err)
		}
		return order, nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, order, nil)
	return order, nil
}

// AcceptPending claims a queue entry and admits it as a real order in a
// single transaction per attempt. A failed claim (already accepted,
// expired) aborts immediately; retrying a claim failure cannot succeed.
// Items are re-priced from the current catalog, so the stored payment
// allocations must still match the total of the moment of acceptance.
func (s *AdmissionService) AcceptPending(ctx context.Context, pendingID uuid.UUID) (*model.Order, error) {
	var claimed *model.PendingOrder

	order, err := withRetry(ctx, func(ctx context.Context) (*model.Order, error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		pend, err := s.pending.Claim(ctx, tx, pendingID)
		if err != nil {
			return nil, err
		}
		claimed = pend

		items, total, err := priceItems(ctx, s.catalog, itemRequests(pend.Items))
		if err != nil {
			return nil, err
		}
		if err := validatePayments(pend.Payments, total); err != nil {
			return nil, err
		}

		order := newOrder(pend.Origin, pend.TableNumber, pend.CustomerName, pend.Note, items, pend.Payments, total)
		if err := s.persistNumbered(ctx, tx, order); err != nil {
			return nil, err
		}

		if err := s.pending.MarkClaimed(ctx, tx, pend.ID, order.ID); err != nil {
			return nil, err
		}

		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit tx: %w", err)
		}
		return order, nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, order, &claimed.ID)
	return order, nil
}

// persistNumbered requests a fresh sequence number and writes the order
// with its items, add-ons and payment allocations. A unique-violation
// here bubbles up to the retry loop, which starts over with a new
// number.
func (s *AdmissionService) persistNumbered(ctx context.Context, tx *sql.Tx, order *model.Order) error {
	number, err := s.sequences.Next(ctx)
	if err != nil {
		return fmt.Errorf("sequence: %w", err)
	}
	order.Number = number

	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (number, origin, table_number, customer_name, note, status, total_cents)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, version, created_at`,
		order.Number, order.Origin, order.TableNumber, order.CustomerName, order.Note, order.Status, order.TotalCents,
	).Scan(&order.ID, &order.Version, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		err = tx.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, name, quantity, unit_price_cents, note)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			order.ID, item.ProductID, item.Name, item.Quantity, item.UnitPriceCents, item.Note,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
		for _, addon := range item.Addons {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_item_addons (item_id, addon_id, name, quantity, unit_price_cents)
				 VALUES ($1, $2, $3, $4, $5)`,
				item.ID, addon.AddonID, addon.Name, addon.Quantity, addon.UnitPriceCents,
			)
			if err != nil {
				return fmt.Errorf("insert item addon: %w", err)
			}
		}
	}

	for _, p := range order.Payments {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_payments (order_id, method, amount_cents) VALUES ($1, $2, $3)`,
			order.ID, p.Method, p.AmountCents,
		)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
	}

	return nil
}

func (s *AdmissionService) publish(ctx context.Context, order *model.Order, pendingID *uuid.UUID) {
	if s.events == nil {
		return
	}
	if err := s.events.OrderCreated(ctx, order, pendingID); err != nil {
		slog.Error("publish order event failed", "order", order.Number, "error", err)
	}
}

// withRetry runs attempt up to maxAdmissionAttempts times, retrying only
// on uniqueness conflicts. After the last conflict the caller gets
// ErrRetriesExhausted and nothing has been persisted.
func withRetry(ctx context.Context, attempt func(context.Context) (*model.Order, error)) (*model.Order, error) {
	var lastErr error
	for i := 0; i < maxAdmissionAttempts; i++ {
		order, err := attempt(ctx)
		if err == nil {
			return order, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrRetriesExhausted, lastErr)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "duplicate key")
}

func newOrder(origin model.Origin, tableNumber *int, customerName, note string, items []model.PendingItem, payments []model.Payment, total int64) *model.Order {
	return &model.Order{
		Origin:       origin,
		TableNumber:  tableNumber,
		CustomerName: customerName,
		Note:         note,
		Status:       model.StatusPendente,
		TotalCents:   total,
		Items:        toOrderItems(items),
		Payments:     payments,
	}
}

func toOrderItems(items []model.PendingItem) []model.OrderItem {
	out := make([]model.OrderItem, 0, len(items))
	for _, it := range items {
		item := model.OrderItem{
			ProductID:      it.ProductID,
			Name:           it.Name,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
			Note:           it.Note,
		}
		for _, a := range it.Addons {
			item.Addons = append(item.Addons, model.ItemAddon{
				AddonID:        a.AddonID,
				Name:           a.Name,
				Quantity:       a.Quantity,
				UnitPriceCents: a.UnitPriceCents,
			})
		}
		out = append(out, item)
	}
	return out
}

func itemRequests(items []model.PendingItem) []ItemRequest {
	out := make([]ItemRequest, 0, len(items))
	for _, it := range items {
		req := ItemRequest{ProductID: it.ProductID, Quantity: it.Quantity, Note: it.Note}
		for _, a := range it.Addons {
			req.Addons = append(req.Addons, AddonRequest{AddonID: a.AddonID, Quantity: a.Quantity})
		}
		out = append(out, req)
	}
	return out
}
