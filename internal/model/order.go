package model

import (
	"time"

	"github.com/google/uuid"
)

type Origin string

const (
	OriginBalcao   Origin = "BALCAO"
	OriginMesa     Origin = "MESA"
	OriginKiosk    Origin = "AUTOATENDIMENTO"
	OriginDelivery Origin = "DELIVERY"
)

func (o Origin) Valid() bool {
	switch o {
	case OriginBalcao, OriginMesa, OriginKiosk, OriginDelivery:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentPix      PaymentMethod = "PIX"
	PaymentDinheiro PaymentMethod = "DINHEIRO"
	PaymentCredito  PaymentMethod = "CREDITO"
	PaymentDebito   PaymentMethod = "DEBITO"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentPix, PaymentDinheiro, PaymentCredito, PaymentDebito:
		return true
	}
	return false
}

// Payment is a single allocation of the order total to a payment method.
// Amounts are integer cents; the sum of all allocations must equal the
// order total exactly at admission time.
type Payment struct {
	Method      PaymentMethod `json:"method"`
	AmountCents int64         `json:"amount_cents"`
}

type Order struct {
	ID           uuid.UUID  `json:"id"`
	Number       int64      `json:"number"`
	Origin       Origin     `json:"origin"`
	TableNumber  *int       `json:"table_number,omitempty"`
	CustomerName string     `json:"customer_name"`
	Note         string     `json:"note,omitempty"`
	Status       Status     `json:"status"`
	TotalCents   int64      `json:"total_cents"`
	Version      int64      `json:"version"`
	CreatedAt    time.Time  `json:"created_at"`
	FinalizedAt  *time.Time `json:"finalized_at,omitempty"`

	Items    []OrderItem `json:"items,omitempty"`
	Payments []Payment   `json:"payments,omitempty"`
}

type OrderItem struct {
	ID             uuid.UUID   `json:"id"`
	ProductID      uuid.UUID   `json:"product_id"`
	Name           string      `json:"name"`
	Quantity       int         `json:"quantity"`
	UnitPriceCents int64       `json:"unit_price_cents"`
	Note           string      `json:"note,omitempty"`
	Addons         []ItemAddon `json:"addons,omitempty"`
}

type ItemAddon struct {
	AddonID        uuid.UUID `json:"addon_id"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
}

// Subtotal is the line total: unit price times quantity plus add-ons.
func (i OrderItem) Subtotal() int64 {
	total := i.UnitPriceCents * int64(i.Quantity)
	for _, a := range i.Addons {
		total += a.UnitPriceCents * int64(a.Quantity)
	}
	return total
}
