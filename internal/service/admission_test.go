package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"comanda/internal/model"
)

func uniqueViolation() error {
	return fmt.Errorf("insert order: %w", &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
}

func TestWithRetry(t *testing.T) {
	t.Run("succeeds first attempt", func(t *testing.T) {
		calls := 0
		order, err := withRetry(context.Background(), func(ctx context.Context) (*model.Order, error) {
			calls++
			return &model.Order{Number: 42}, nil
		})
		if err != nil {
			t.Fatalf("withRetry returned error: %v", err)
		}
		if calls != 1 {
			t.Errorf("attempts = %d, want 1", calls)
		}
		if order.Number != 42 {
			t.Errorf("number = %d, want 42", order.Number)
		}
	})

	t.Run("retries uniqueness conflicts then succeeds", func(t *testing.T) {
		calls := 0
		order, err := withRetry(context.Background(), func(ctx context.Context) (*model.Order, error) {
			calls++
			if calls < 3 {
				return nil, uniqueViolation()
			}
			return &model.Order{Number: 7}, nil
		})
		if err != nil {
			t.Fatalf("withRetry returned error: %v", err)
		}
		if calls != 3 {
			t.Errorf("attempts = %d, want 3", calls)
		}
		if order.Number != 7 {
			t.Errorf("number = %d, want 7", order.Number)
		}
	})

	t.Run("gives up after bound", func(t *testing.T) {
		calls := 0
		_, err := withRetry(context.Background(), func(ctx context.Context) (*model.Order, error) {
			calls++
			return nil, uniqueViolation()
		})
		if calls != maxAdmissionAttempts {
			t.Errorf("attempts = %d, want %d", calls, maxAdmissionAttempts)
		}
		if !errors.Is(err, ErrRetriesExhausted) {
			t.Errorf("expected ErrRetriesExhausted, got %v", err)
		}
	})

	t.Run("validation errors are not retried", func(t *testing.T) {
		calls := 0
		_, err := withRetry(context.Background(), func(ctx context.Context) (*model.Order, error) {
			calls++
			return nil, validationf("payment mismatch")
		})
		if calls != 1 {
			t.Errorf("attempts = %d, want 1", calls)
		}
		var v *ValidationError
		if !errors.As(err, &v) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("claim failures are not retried", func(t *testing.T) {
		calls := 0
		_, err := withRetry(context.Background(), func(ctx context.Context) (*model.Order, error) {
			calls++
			return nil, ErrAlreadyProcessed
		})
		if calls != 1 {
			t.Errorf("attempts = %d, want 1", calls)
		}
		if !errors.Is(err, ErrAlreadyProcessed) {
			t.Errorf("expected ErrAlreadyProcessed, got %v", err)
		}
	})
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped pg unique violation", uniqueViolation(), true},
		{"other pg error", &pgconn.PgError{Code: "40001"}, false},
		{"duplicate key text", errors.New(`pq: duplicate key value violates unique constraint "orders_number_key"`), true},
		{"plain error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}
