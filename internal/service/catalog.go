package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"comanda/internal/model"
)

// CatalogService is the product/add-on collaborator the admission
// workflow prices against. Clients never supply prices; everything is
// looked up here at admission time.
type CatalogService struct {
	db *sql.DB
}

func NewCatalogService(db *sql.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	if p.Name == "" {
		return nil, validationf("product name required")
	}
	if p.PriceCents < 0 {
		return nil, validationf("product price must not be negative")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO products (name, price_cents, available) VALUES ($1, $2, $3) RETURNING id, created_at`,
		p.Name, p.PriceCents, p.Available,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}

	for i := range p.Addons {
		a := &p.Addons[i]
		if a.Name == "" || a.PriceCents < 0 {
			return nil, validationf("invalid add-on for product %s", p.Name)
		}
		a.ProductID = p.ID
		err = tx.QueryRowContext(ctx,
			`INSERT INTO addons (product_id, name, price_cents, available) VALUES ($1, $2, $3, $4) RETURNING id`,
			a.ProductID, a.Name, a.PriceCents, a.Available,
		).Scan(&a.ID)
		if err != nil {
			return nil, fmt.Errorf("insert addon: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return p, nil
}

// Product loads a product with its add-ons. Returns ErrNotFound for
// unknown ids; availability is left for the caller to judge.
func (s *CatalogService) Product(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, price_cents, available, created_at FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.PriceCents, &p.Available, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_id, name, price_cents, available FROM addons WHERE product_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query addons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a model.Addon
		if err := rows.Scan(&a.ID, &a.ProductID, &a.Name, &a.PriceCents, &a.Available); err != nil {
			return nil, fmt.Errorf("scan addon: %w", err)
		}
		p.Addons = append(p.Addons, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return &p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, price_cents, available, created_at FROM products ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	byID := map[uuid.UUID]int{}
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Available, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		byID[p.ID] = len(products)
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	arows, err := s.db.QueryContext(ctx,
		`SELECT id, product_id, name, price_cents, available FROM addons`)
	if err != nil {
		return nil, fmt.Errorf("query addons: %w", err)
	}
	defer arows.Close()

	for arows.Next() {
		var a model.Addon
		if err := arows.Scan(&a.ID, &a.ProductID, &a.Name, &a.PriceCents, &a.Available); err != nil {
			return nil, fmt.Errorf("scan addon: %w", err)
		}
		if i, ok := byID[a.ProductID]; ok {
			products[i].Addons = append(products[i].Addons, a)
		}
	}
	if err = arows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return products, nil
}
