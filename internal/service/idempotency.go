package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	idemInFlight  = "IN_FLIGHT"
	idemSucceeded = "SUCCEEDED"
	idemFailed    = "FAILED"
)

const (
	failureValidation = "validation"
	failureConflict   = "conflict"
	failureNotFound   = "not_found"
)

type idempotencyRecord struct {
	Status      string
	Response    []byte
	FailureKind string
	FailureMsg  string
}

type ledgerStore interface {
	insert(ctx context.Context, key, operation string, expiresAt time.Time) (bool, error)
	get(ctx context.Context, key, operation string) (*idempotencyRecord, error)
	resolve(ctx context.Context, key, operation, status string, response []byte, failureKind, failureMsg string) error
	remove(ctx context.Context, key, operation string) error
	sweep(ctx context.Context, now time.Time) (int64, error)
}

// IdempotencyService executes a write operation at most once per
// (key, operation) pair. The first caller inserts an in-flight marker,
// runs the operation and stores its outcome; later callers with the same
// key get the stored outcome back without re-execution. A duplicate that
// arrives while the original is still running gets ErrInFlight
// immediately rather than blocking.
type IdempotencyService struct {
	store     ledgerStore
	retention time.Duration
}

func NewIdempotencyService(db *sql.DB, retention time.Duration) *IdempotencyService {
	return &IdempotencyService{store: &pgLedger{db: db}, retention: retention}
}

// Execute runs fn under the (key, operation) idempotency record and
// returns the JSON-encoded result. The second return value reports
// whether the result was replayed from a previous call.
//
// Business failures (validation, already-processed, not-found) are
// recorded and replayed as the same failure. Infrastructure and
// retry-exhaustion failures release the key instead, so a client retry
// after "system busy" gets a fresh attempt.
//
// Execution is detached from the caller's cancellation: a client that
// times out and disconnects mid-flight is exactly the client that will
// retry with the same key, so the original attempt must run to
// completion and resolve its record rather than strand an in-flight
// marker until the retention sweep.
func (s *IdempotencyService) Execute(ctx context.Context, key, operation string, fn func(context.Context) (any, error)) (json.RawMessage, bool, error) {
	ctx = context.WithoutCancel(ctx)

	inserted, err := s.store.insert(ctx, key, operation, time.Now().Add(s.retention))
	if err != nil {
		return nil, false, fmt.Errorf("idempotency insert: %w", err)
	}

	if !inserted {
		rec, err := s.store.get(ctx, key, operation)
		if err != nil {
			return nil, false, fmt.Errorf("idempotency lookup: %w", err)
		}
		if rec == nil {
			// Swept between the conflicting insert and the lookup.
			return nil, false, fmt.Errorf("idempotency record for key %q expired mid-request", key)
		}
		switch rec.Status {
		case idemSucceeded:
			return rec.Response, true, nil
		case idemFailed:
			return nil, true, failureFromRecord(rec.FailureKind, rec.FailureMsg)
		default:
			return nil, false, ErrInFlight
		}
	}

	result, err := fn(ctx)
	if err != nil {
		if kind := failureKindOf(err); kind != "" {
			_ = s.store.resolve(ctx, key, operation, idemFailed, nil, kind, err.Error())
		} else {
			_ = s.store.remove(ctx, key, operation)
		}
		return nil, false, err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		_ = s.store.remove(ctx, key, operation)
		return nil, false, fmt.Errorf("marshal idempotent result: %w", err)
	}

	// Best effort: the operation itself committed, so the result is
	// returned even if storing it fails. The stuck in-flight marker is
	// cleared by the retention sweep.
	_ = s.store.resolve(ctx, key, operation, idemSucceeded, payload, "", "")

	return payload, false, nil
}

// SweepExpired removes records past their retention window.
func (s *IdempotencyService) SweepExpired(ctx context.Context) (int64, error) {
	return s.store.sweep(ctx, time.Now())
}

func failureKindOf(err error) string {
	var v *ValidationError
	switch {
	case errors.As(err, &v):
		return failureValidation
	case errors.Is(err, ErrAlreadyProcessed):
		return failureConflict
	case errors.Is(err, ErrNotFound):
		return failureNotFound
	}
	return ""
}

func failureFromRecord(kind, msg string) error {
	switch kind {
	case failureValidation:
		return &ValidationError{Msg: msg}
	case failureConflict:
		return ErrAlreadyProcessed
	case failureNotFound:
		return ErrNotFound
	}
	return errors.New(msg)
}

type pgLedger struct {
	db *sql.DB
}

func (l *pgLedger) insert(ctx context.Context, key, operation string, expiresAt time.Time) (bool, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO idempotency_keys (key, operation, status, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key, operation) DO NOTHING`,
		key, operation, idemInFlight, expiresAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (l *pgLedger) get(ctx context.Context, key, operation string) (*idempotencyRecord, error) {
	var rec idempotencyRecord
	var response sql.NullString
	err := l.db.QueryRowContext(ctx,
		`SELECT status, response, failure_kind, failure_msg
		 FROM idempotency_keys WHERE key = $1 AND operation = $2`,
		key, operation,
	).Scan(&rec.Status, &response, &rec.FailureKind, &rec.FailureMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if response.Valid {
		rec.Response = []byte(response.String)
	}
	return &rec, nil
}

func (l *pgLedger) resolve(ctx context.Context, key, operation, status string, response []byte, failureKind, failureMsg string) error {
	var resp any
	if response != nil {
		resp = string(response)
	}
	_, err := l.db.ExecContext(ctx,
		`UPDATE idempotency_keys
		 SET status = $3, response = $4, failure_kind = $5, failure_msg = $6
		 WHERE key = $1 AND operation = $2 AND status = $7`,
		key, operation, status, resp, failureKind, failureMsg, idemInFlight,
	)
	return err
}

func (l *pgLedger) remove(ctx context.Context, key, operation string) error {
	_, err := l.db.ExecContext(ctx,
		`DELETE FROM idempotency_keys WHERE key = $1 AND operation = $2 AND status = $3`,
		key, operation, idemInFlight,
	)
	return err
}

func (l *pgLedger) sweep(ctx context.Context, now time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM idempotency_keys WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("sweep idempotency keys: %w", err)
	}
	return res.RowsAffected()
}
