package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"comanda/internal/model"
)

// ItemRequest is a client-supplied line item. Prices are deliberately
// absent: they are always resolved from the catalog server-side.
type ItemRequest struct {
	ProductID uuid.UUID      `json:"product_id"`
	Quantity  int            `json:"quantity"`
	Note      string         `json:"note,omitempty"`
	Addons    []AddonRequest `json:"addons,omitempty"`
}

type AddonRequest struct {
	AddonID  uuid.UUID `json:"addon_id"`
	Quantity int       `json:"quantity"`
}

// SubmitRequest is a customer submission into the pending queue.
type SubmitRequest struct {
	Origin        model.Origin    `json:"origin"`
	TableNumber   *int            `json:"table_number,omitempty"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	Note          string          `json:"note,omitempty"`
	Items         []ItemRequest   `json:"items"`
	Payments      []model.Payment `json:"payments"`
}

// CreateOrderRequest is a direct (non-queued) admission, e.g. from the
// counter or a kiosk.
type CreateOrderRequest struct {
	Origin       model.Origin    `json:"origin"`
	TableNumber  *int            `json:"table_number,omitempty"`
	CustomerName string          `json:"customer_name"`
	Note         string          `json:"note,omitempty"`
	Items        []ItemRequest   `json:"items"`
	Payments     []model.Payment `json:"payments"`
}

type productCatalog interface {
	Product(ctx context.Context, id uuid.UUID) (*model.Product, error)
}

func validateOrigin(origin model.Origin, tableNumber *int) error {
	if !origin.Valid() {
		return validationf("unknown origin %q", origin)
	}
	if origin == model.OriginMesa && (tableNumber == nil || *tableNumber <= 0) {
		return validationf("table orders require a positive table number")
	}
	return nil
}

// priceItems validates every referenced product and add-on against the
// catalog and prices the lines from current catalog prices. Returns the
// priced items and the order subtotal in cents.
func priceItems(ctx context.Context, catalog productCatalog, items []ItemRequest) ([]model.PendingItem, int64, error) {
	if len(items) == 0 {
		return nil, 0, validationf("order must contain at least one item")
	}

	priced := make([]model.PendingItem, 0, len(items))
	var subtotal int64
	for _, req := range items {
		if req.Quantity <= 0 {
			return nil, 0, validationf("item quantity must be positive")
		}

		product, err := catalog.Product(ctx, req.ProductID)
		if errors.Is(err, ErrNotFound) {
			return nil, 0, validationf("product %s does not exist", req.ProductID)
		}
		if err != nil {
			return nil, 0, err
		}
		if !product.Available {
			return nil, 0, validationf("product %q is not available", product.Name)
		}

		item := model.PendingItem{
			ProductID:      product.ID,
			Name:           product.Name,
			Quantity:       req.Quantity,
			UnitPriceCents: product.PriceCents,
			Note:           req.Note,
		}

		for _, ar := range req.Addons {
			if ar.Quantity <= 0 {
				return nil, 0, validationf("add-on quantity must be positive")
			}
			addon, ok := findAddon(product.Addons, ar.AddonID)
			if !ok {
				return nil, 0, validationf("add-on %s does not belong to product %q", ar.AddonID, product.Name)
			}
			if !addon.Available {
				return nil, 0, validationf("add-on %q is not available", addon.Name)
			}
			item.Addons = append(item.Addons, model.PendingAddon{
				AddonID:        addon.ID,
				Name:           addon.Name,
				Quantity:       ar.Quantity,
				UnitPriceCents: addon.PriceCents,
			})
		}

		subtotal += itemSubtotal(item)
		priced = append(priced, item)
	}

	return priced, subtotal, nil
}

func findAddon(addons []model.Addon, id uuid.UUID) (model.Addon, bool) {
	for _, a := range addons {
		if a.ID == id {
			return a, true
		}
	}
	return model.Addon{}, false
}

func itemSubtotal(item model.PendingItem) int64 {
	total := item.UnitPriceCents * int64(item.Quantity)
	for _, a := range item.Addons {
		total += a.UnitPriceCents * int64(a.Quantity)
	}
	return total
}

// validateAllocations checks that the payment allocations are well
// formed: at least one, known methods, positive amounts. Checked at
// queue submission too, so a customer gets the error while they can
// still fix it.
func validateAllocations(payments []model.Payment) error {
	if len(payments) == 0 {
		return validationf("at least one payment allocation is required")
	}
	for _, p := range payments {
		if !p.Method.Valid() {
			return validationf("unknown payment method %q", p.Method)
		}
		if p.AmountCents <= 0 {
			return validationf("payment amount must be positive")
		}
	}
	return nil
}

// validatePayments additionally checks that the allocations sum to the
// order total exactly. No rounding tolerance: amounts are integer cents.
func validatePayments(payments []model.Payment, totalCents int64) error {
	if err := validateAllocations(payments); err != nil {
		return err
	}
	var sum int64
	for _, p := range payments {
		sum += p.AmountCents
	}
	if sum != totalCents {
		return validationf("payment allocations sum to %d cents, order total is %d cents", sum, totalCents)
	}
	return nil
}
