package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"comanda/internal/model"
)

func TestSubmitValidation(t *testing.T) {
	burger := &model.Product{ID: uuid.New(), Name: "X-Burger", PriceCents: 1000, Available: true}
	svc := NewPendingOrderService(nil, newFakeCatalog(burger))
	four := 4

	good := SubmitRequest{
		Origin:       model.OriginMesa,
		TableNumber:  &four,
		CustomerName: "Ana",
		Items:        []ItemRequest{{ProductID: burger.ID, Quantity: 1}},
		Payments:     []model.Payment{{Method: model.PaymentPix, AmountCents: 1000}},
	}

	tests := []struct {
		name   string
		mutate func(r *SubmitRequest)
	}{
		{"counter origin", func(r *SubmitRequest) { r.Origin = model.OriginBalcao; r.TableNumber = nil }},
		{"missing customer name", func(r *SubmitRequest) { r.CustomerName = "" }},
		{"no payment allocations", func(r *SubmitRequest) { r.Payments = nil }},
		{"unknown payment method", func(r *SubmitRequest) { r.Payments = []model.Payment{{Method: "CHEQUE", AmountCents: 1000}} }},
		{"non-positive payment amount", func(r *SubmitRequest) { r.Payments = []model.Payment{{Method: model.PaymentPix, AmountCents: 0}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := good
			tt.mutate(&req)
			_, err := svc.Submit(context.Background(), req)
			var v *ValidationError
			if !errors.As(err, &v) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}
