package service

import (
	"context"
	"database/sql"
	"fmt"
)

// SequenceService issues unique, strictly increasing order display
// numbers. Uniqueness comes from the BIGSERIAL on order_numbers, not
// from application logic, so it holds under any number of concurrent
// callers and across restarts. Numbers consumed by rolled-back
// admission attempts become gaps, which is acceptable.
type SequenceService struct {
	db *sql.DB
}

func NewSequenceService(db *sql.DB) *SequenceService {
	return &SequenceService{db: db}
}

func (s *SequenceService) Next(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO order_numbers DEFAULT VALUES RETURNING id`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("issue order number: %w", err)
	}
	return n, nil
}

// Prune drops all but the most recent keep rows. Advisory only: issued
// numbers live on the orders they were assigned to, so deleting old
// rows never affects them, and a failed prune never blocks issuance.
func (s *SequenceService) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM order_numbers
		 WHERE id <= (SELECT COALESCE(MAX(id), 0) FROM order_numbers) - $1`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune order numbers: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune order numbers: %w", err)
	}
	return n, nil
}
