package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"comanda/internal/model"
)

// PendingOrderService is the durable holding area between a customer's
// QR submission and staff acceptance. All mutation of the order_id link
// goes through Claim/MarkClaimed so two staff members can never accept
// the same entry.
type PendingOrderService struct {
	db      *sql.DB
	catalog productCatalog
}

func NewPendingOrderService(db *sql.DB, catalog productCatalog) *PendingOrderService {
	return &PendingOrderService{db: db, catalog: catalog}
}

// Submit validates the referenced catalog entries and the shape of the
// payment allocations, prices the items and persists the entry. The
// allocation sum is checked at acceptance, when the order is re-priced
// against the catalog of that moment.
func (s *PendingOrderService) Submit(ctx context.Context, req SubmitRequest) (*model.PendingOrder, error) {
	if err := validateOrigin(req.Origin, req.TableNumber); err != nil {
		return nil, err
	}
	if req.Origin == model.OriginBalcao {
		return nil, validationf("counter orders are created directly, not through the queue")
	}
	if req.CustomerName == "" {
		return nil, validationf("customer name is required")
	}

	items, subtotal, err := priceItems(ctx, s.catalog, req.Items)
	if err != nil {
		return nil, err
	}
	if err := validateAllocations(req.Payments); err != nil {
		return nil, err
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}
	paymentsJSON, err := json.Marshal(req.Payments)
	if err != nil {
		return nil, fmt.Errorf("marshal payments: %w", err)
	}

	pending := &model.PendingOrder{
		Origin:        req.Origin,
		TableNumber:   req.TableNumber,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Note:          req.Note,
		Items:         items,
		Payments:      req.Payments,
		SubtotalCents: subtotal,
	}

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO pending_orders (origin, table_number, customer_name, customer_phone, note, items, payments, subtotal_cents)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, submitted_at`,
		pending.Origin, pending.TableNumber, pending.CustomerName, pending.CustomerPhone,
		pending.Note, itemsJSON, paymentsJSON, pending.SubtotalCents,
	).Scan(&pending.ID, &pending.SubmittedAt)
	if err != nil {
		return nil, fmt.Errorf("insert pending order: %w", err)
	}

	return pending, nil
}

const pendingColumns = `id, origin, table_number, customer_name, customer_phone, note, items, payments, subtotal_cents, order_id, submitted_at`

// ListPending returns all unclaimed entries oldest first, so staff triage
// is fair to whoever ordered earliest.
func (s *PendingOrderService) ListPending(ctx context.Context) ([]model.PendingOrder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pendingColumns+` FROM pending_orders WHERE order_id IS NULL ORDER BY submitted_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query pending orders: %w", err)
	}
	defer rows.Close()

	var pendings []model.PendingOrder
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		pendings = append(pendings, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return pendings, nil
}

// Get returns the entry whether or not it has been claimed. Used by the
// status poll to resolve a pending id to a real order id.
func (s *PendingOrderService) Get(ctx context.Context, id uuid.UUID) (*model.PendingOrder, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pendingColumns+` FROM pending_orders WHERE id = $1`, id)
	p, err := scanPending(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// Claim takes an exclusive row lock on the entry inside the caller's
// transaction and re-checks that it is still unclaimed. A concurrent
// claimer blocks on the lock until this transaction commits or rolls
// back, then sees either ErrAlreadyProcessed or the released row.
func (s *PendingOrderService) Claim(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*model.PendingOrder, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+pendingColumns+` FROM pending_orders WHERE id = $1 FOR UPDATE`, id)
	p, err := scanPending(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.OrderID != nil {
		return nil, ErrAlreadyProcessed
	}
	return p, nil
}

// MarkClaimed links the entry to the created order. Idempotent for the
// same order id; linking to a different order fails.
func (s *PendingOrderService) MarkClaimed(ctx context.Context, tx *sql.Tx, id, orderID uuid.UUID) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE pending_orders SET order_id = $2 WHERE id = $1 AND (order_id IS NULL OR order_id = $2)`,
		id, orderID)
	if err != nil {
		return fmt.Errorf("mark pending claimed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark pending claimed: %w", err)
	}
	if n == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}

// Reject deletes an unclaimed entry and returns it as it was, for the
// audit log. Claimed entries cannot be rejected.
func (s *PendingOrderService) Reject(ctx context.Context, id uuid.UUID) (*model.PendingOrder, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	p, err := s.Claim(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_orders WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete pending order: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return p, nil
}

// SweepExpired removes unclaimed entries older than maxAge.
func (s *PendingOrderService) SweepExpired(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_orders WHERE order_id IS NULL AND submitted_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep pending orders: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPending(row rowScanner) (*model.PendingOrder, error) {
	var p model.PendingOrder
	var tableNumber sql.NullInt64
	var orderID uuid.NullUUID
	var itemsJSON, paymentsJSON []byte

	err := row.Scan(&p.ID, &p.Origin, &tableNumber, &p.CustomerName, &p.CustomerPhone,
		&p.Note, &itemsJSON, &paymentsJSON, &p.SubtotalCents, &orderID, &p.SubmittedAt)
	if err != nil {
		return nil, err
	}

	if tableNumber.Valid {
		n := int(tableNumber.Int64)
		p.TableNumber = &n
	}
	if orderID.Valid {
		id := orderID.UUID
		p.OrderID = &id
	}
	if err := json.Unmarshal(itemsJSON, &p.Items); err != nil {
		return nil, fmt.Errorf("unmarshal pending items: %w", err)
	}
	if err := json.Unmarshal(paymentsJSON, &p.Payments); err != nil {
		return nil, fmt.Errorf("unmarshal pending payments: %w", err)
	}
	return &p, nil
}
