package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"comanda/internal/model"
)

func TestTransitionInputValidation(t *testing.T) {
	svc := NewStatusService(nil, nil)
	ctx := context.Background()
	id := uuid.New()

	t.Run("unknown status", func(t *testing.T) {
		_, err := svc.Transition(ctx, id, model.Status("ENTREGUE"), 1)
		var v *ValidationError
		if !errors.As(err, &v) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("missing version", func(t *testing.T) {
		_, err := svc.Transition(ctx, id, model.StatusPreparando, 0)
		var v *ValidationError
		if !errors.As(err, &v) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("negative version", func(t *testing.T) {
		_, err := svc.Transition(ctx, id, model.StatusPreparando, -1)
		var v *ValidationError
		if !errors.As(err, &v) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}
