package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"comanda/internal/model"
)

type fakeCatalog struct {
	products map[uuid.UUID]*model.Product
}

func (f *fakeCatalog) Product(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func newFakeCatalog(products ...*model.Product) *fakeCatalog {
	f := &fakeCatalog{products: map[uuid.UUID]*model.Product{}}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func TestPriceItems(t *testing.T) {
	burger := &model.Product{ID: uuid.New(), Name: "X-Burger", PriceCents: 1000, Available: true}
	bacon := model.Addon{ID: uuid.New(), ProductID: burger.ID, Name: "Bacon", PriceCents: 300, Available: true}
	soldOut := model.Addon{ID: uuid.New(), ProductID: burger.ID, Name: "Cheddar", PriceCents: 200, Available: false}
	burger.Addons = []model.Addon{bacon, soldOut}
	offMenu := &model.Product{ID: uuid.New(), Name: "Feijoada", PriceCents: 2500, Available: false}
	catalog := newFakeCatalog(burger, offMenu)

	t.Run("prices from catalog", func(t *testing.T) {
		items, total, err := priceItems(context.Background(), catalog, []ItemRequest{
			{ProductID: burger.ID, Quantity: 2, Addons: []AddonRequest{{AddonID: bacon.ID, Quantity: 1}}},
		})
		if err != nil {
			t.Fatalf("priceItems returned error: %v", err)
		}
		if total != 2300 {
			t.Errorf("total = %d, want 2300", total)
		}
		if items[0].UnitPriceCents != 1000 {
			t.Errorf("unit price = %d, want catalog price 1000", items[0].UnitPriceCents)
		}
		if items[0].Addons[0].UnitPriceCents != 300 {
			t.Errorf("addon price = %d, want catalog price 300", items[0].Addons[0].UnitPriceCents)
		}
	})

	errCases := []struct {
		name  string
		items []ItemRequest
	}{
		{"no items", nil},
		{"zero quantity", []ItemRequest{{ProductID: burger.ID, Quantity: 0}}},
		{"unknown product", []ItemRequest{{ProductID: uuid.New(), Quantity: 1}}},
		{"unavailable product", []ItemRequest{{ProductID: offMenu.ID, Quantity: 1}}},
		{"unknown addon", []ItemRequest{{ProductID: burger.ID, Quantity: 1, Addons: []AddonRequest{{AddonID: uuid.New(), Quantity: 1}}}}},
		{"unavailable addon", []ItemRequest{{ProductID: burger.ID, Quantity: 1, Addons: []AddonRequest{{AddonID: soldOut.ID, Quantity: 1}}}}},
		{"zero addon quantity", []ItemRequest{{ProductID: burger.ID, Quantity: 1, Addons: []AddonRequest{{AddonID: bacon.ID, Quantity: 0}}}}},
	}
	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := priceItems(context.Background(), catalog, tt.items)
			var v *ValidationError
			if !errors.As(err, &v) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestValidatePayments(t *testing.T) {
	tests := []struct {
		name     string
		payments []model.Payment
		total    int64
		wantErr  bool
	}{
		{"exact single", []model.Payment{{Method: model.PaymentPix, AmountCents: 2000}}, 2000, false},
		{"exact split", []model.Payment{{Method: model.PaymentPix, AmountCents: 1500}, {Method: model.PaymentDinheiro, AmountCents: 500}}, 2000, false},
		{"under", []model.Payment{{Method: model.PaymentPix, AmountCents: 1999}}, 2000, true},
		{"over", []model.Payment{{Method: model.PaymentPix, AmountCents: 2001}}, 2000, true},
		{"none", nil, 2000, true},
		{"unknown method", []model.Payment{{Method: "CHEQUE", AmountCents: 2000}}, 2000, true},
		{"non-positive amount", []model.Payment{{Method: model.PaymentPix, AmountCents: 0}, {Method: model.PaymentDinheiro, AmountCents: 2000}}, 2000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePayments(tt.payments, tt.total)
			if (err != nil) != tt.wantErr {
				t.Errorf("validatePayments() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var v *ValidationError
				if !errors.As(err, &v) {
					t.Errorf("expected validation error, got %v", err)
				}
			}
		})
	}
}

func TestValidateOrigin(t *testing.T) {
	four := 4
	zero := 0

	tests := []struct {
		name    string
		origin  model.Origin
		table   *int
		wantErr bool
	}{
		{"table with number", model.OriginMesa, &four, false},
		{"table without number", model.OriginMesa, nil, true},
		{"table with zero number", model.OriginMesa, &zero, true},
		{"delivery", model.OriginDelivery, nil, false},
		{"kiosk", model.OriginKiosk, nil, false},
		{"counter", model.OriginBalcao, nil, false},
		{"unknown", model.Origin("DRIVE_THRU"), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateOrigin(tt.origin, tt.table)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateOrigin() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
