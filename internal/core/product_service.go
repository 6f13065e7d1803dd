package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrProductNotFound is returned when a scanned or typed code does not
// resolve to an active catalog entry.
var ErrProductNotFound = errors.New("product not found")

// ProductService resolves catalog entries for the population flow.
type ProductService interface {
	// GetByCode finds an active product by its exact code.
	// Returns ErrProductNotFound if no such product exists.
	GetByCode(ctx context.Context, code string) (*Product, error)

	// GetProducts returns all active products ordered by code.
	GetProducts(ctx context.Context) ([]Product, error)
}

type productService struct {
	pool *pgxpool.Pool
}

// NewProductService constructs a ProductService backed by PostgreSQL.
func NewProductService(pool *pgxpool.Pool) ProductService {
	return &productService{pool: pool}
}

func (s *productService) GetByCode(ctx context.Context, code string) (*Product, error) {
	p := &Product{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, code, description, unit, is_active, created_at
		FROM products
		WHERE code = $1 AND is_active = true
	`, code).Scan(&p.ID, &p.Code, &p.Description, &p.Unit, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %q: %w", code, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to fetch product %q: %w", code, err)
	}
	return p, nil
}

func (s *productService) GetProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, code, description, unit, is_active, created_at
		FROM products
		WHERE is_active = true
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Description, &p.Unit, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
