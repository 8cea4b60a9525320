package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"comanda/internal/model"
)

// Poll states for the unified status view.
const (
	StateAwaitingAccept = "AGUARDANDO_ACEITE"
	StateAccepted       = "ACEITO"
)

// StatusView is the customer-facing answer to "where is my order",
// resolved from either a pending-order id or a real-order id.
type StatusView struct {
	State     string       `json:"state"`
	PendingID *uuid.UUID   `json:"pending_id,omitempty"`
	OrderID   *uuid.UUID   `json:"order_id,omitempty"`
	Number    *int64       `json:"number,omitempty"`
	Status    model.Status `json:"status,omitempty"`
}

type StatusService struct {
	db      *sql.DB
	pending *PendingOrderService
}

func NewStatusService(db *sql.DB, pending *PendingOrderService) *StatusService {
	return &StatusService{db: db, pending: pending}
}

// Resolve accepts either id. A pending id whose entry has been claimed
// resolves through the link to the real order's status.
func (s *StatusService) Resolve(ctx context.Context, id uuid.UUID) (*StatusView, error) {
	order, err := s.getOrder(ctx, id)
	if err == nil {
		return acceptedView(order, nil), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	pend, err := s.pending.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if pend.OrderID == nil {
		pid := pend.ID
		return &StatusView{State: StateAwaitingAccept, PendingID: &pid}, nil
	}

	order, err = s.getOrder(ctx, *pend.OrderID)
	if err != nil {
		return nil, err
	}
	pid := pend.ID
	return acceptedView(order, &pid), nil
}

func acceptedView(order *model.Order, pendingID *uuid.UUID) *StatusView {
	oid := order.ID
	num := order.Number
	return &StatusView{
		State:     StateAccepted,
		PendingID: pendingID,
		OrderID:   &oid,
		Number:    &num,
		Status:    order.Status,
	}
}

// Transition applies the status machine under optimistic locking. The
// caller must pass the version it last saw; a stale version fails with
// ErrVersionConflict instead of silently overwriting. FINALIZADO sets
// the finalization timestamp the first time only; later transitions
// (cancellation included) never touch it.
func (s *StatusService) Transition(ctx context.Context, id uuid.UUID, next model.Status, version int64) (*model.Order, error) {
	if !next.Valid() {
		return nil, validationf("unknown status %q", next)
	}
	if version <= 0 {
		return nil, validationf("version is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current model.Status
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM orders WHERE id = $1`, id,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order status: %w", err)
	}

	if !current.CanTransitionTo(next) {
		return nil, validationf("cannot move order from %s to %s", current, next)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE orders
		 SET status = $2,
		     version = version + 1,
		     finalized_at = CASE WHEN $2 = $4 AND finalized_at IS NULL THEN NOW() ELSE finalized_at END
		 WHERE id = $1 AND version = $3`,
		id, next, version, model.StatusFinalizado)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if n == 0 {
		return nil, ErrVersionConflict
	}

	order, err := scanOrderRow(tx.QueryRowContext(ctx, orderSelect+` WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

const orderSelect = `SELECT id, number, origin, table_number, customer_name, note, status, total_cents, version, created_at, finalized_at FROM orders`

func (s *StatusService) getOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := scanOrderRow(s.db.QueryRowContext(ctx, orderSelect+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return order, err
}

func scanOrderRow(row rowScanner) (*model.Order, error) {
	var o model.Order
	var tableNumber sql.NullInt64
	var finalizedAt sql.NullTime
	err := row.Scan(&o.ID, &o.Number, &o.Origin, &tableNumber, &o.CustomerName, &o.Note,
		&o.Status, &o.TotalCents, &o.Version, &o.CreatedAt, &finalizedAt)
	if err != nil {
		return nil, err
	}
	if tableNumber.Valid {
		n := int(tableNumber.Int64)
		o.TableNumber = &n
	}
	if finalizedAt.Valid {
		t := finalizedAt.Time
		o.FinalizedAt = &t
	}
	return &o, nil
}
