package model

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Available  bool      `json:"available"`
	Addons     []Addon   `json:"addons,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Addon struct {
	ID         uuid.UUID `json:"id"`
	ProductID  uuid.UUID `json:"product_id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Available  bool      `json:"available"`
}
