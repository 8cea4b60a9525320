package model

import (
	"time"

	"github.com/google/uuid"
)

// PendingOrder is a customer-submitted order waiting for staff acceptance.
// It has no display number; OrderID stays nil until a staff member accepts
// it, at which point the entry is linked to the real order exactly once.
type PendingOrder struct {
	ID            uuid.UUID     `json:"id"`
	Origin        Origin        `json:"origin"`
	TableNumber   *int          `json:"table_number,omitempty"`
	CustomerName  string        `json:"customer_name"`
	CustomerPhone string        `json:"customer_phone,omitempty"`
	Note          string        `json:"note,omitempty"`
	Items         []PendingItem `json:"items"`
	Payments      []Payment     `json:"payments"`
	SubtotalCents int64         `json:"subtotal_cents"`
	OrderID       *uuid.UUID    `json:"order_id,omitempty"`
	SubmittedAt   time.Time     `json:"submitted_at"`
}

type PendingItem struct {
	ProductID      uuid.UUID      `json:"product_id"`
	Name           string         `json:"name"`
	Quantity       int            `json:"quantity"`
	UnitPriceCents int64          `json:"unit_price_cents"`
	Note           string         `json:"note,omitempty"`
	Addons         []PendingAddon `json:"addons,omitempty"`
}

type PendingAddon struct {
	AddonID        uuid.UUID `json:"addon_id"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
}
