package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modern-pos/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductUpdate carries the optional fields of a partial product update.
// Only non-nil fields are applied.
type ProductUpdate struct {
	Price          *float64
	Stock          *int
	LastModifiedBy *uuid.UUID
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, id uuid.UUID, update ProductUpdate) (*domain.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListAvailable(ctx context.Context) ([]*domain.Product, error)

	// ReserveStock atomically checks stock >= quantity and decrements it in
	// a single statement, returning the product name for the sale-time
	// snapshot. ok is false when the product is missing or stock is
	// insufficient; that is an expected business outcome, not an error.
	// The Querier lets the coordinator run reservations inside one
	// transaction together with the ledger write.
	ReserveStock(ctx context.Context, q Querier, id uuid.UUID, quantity int) (name string, ok bool, err error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, price, stock, last_modified_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Price,
		product.Stock,
		product.LastModifiedBy,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update applies only the fields present in the update and returns the
// refreshed product. Absent fields keep their stored values.
func (r *productRepository) Update(ctx context.Context, id uuid.UUID, update ProductUpdate) (*domain.Product, error) {
	query := `
		UPDATE products
		SET price = COALESCE($2, price),
		    stock = COALESCE($3, stock),
		    last_modified_by = COALESCE($4, last_modified_by),
		    updated_at = $5
		WHERE id = $1
		RETURNING id, name, price, stock, last_modified_by, created_at, updated_at
	`

	product := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, id, update.Price, update.Stock, update.LastModifiedBy, time.Now()).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.Stock,
		&product.LastModifiedBy,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, name, price, stock, last_modified_by, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	product := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.Stock,
		&product.LastModifiedBy,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// ListAvailable retrieves every product with stock remaining. Callers must
// not depend on the order of the result.
func (r *productRepository) ListAvailable(ctx context.Context) ([]*domain.Product, error) {
	query := `
		SELECT id, name, price, stock, last_modified_by, created_at, updated_at
		FROM products
		WHERE stock > 0
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list available products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product := &domain.Product{}
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Price,
			&product.Stock,
			&product.LastModifiedBy,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// ReserveStock performs the conditional decrement. The WHERE clause carries
// the stock check, so two concurrent reservations for the last units cannot
// both succeed: the second sees zero rows affected.
func (r *productRepository) ReserveStock(ctx context.Context, q Querier, id uuid.UUID, quantity int) (string, bool, error) {
	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2
		RETURNING name
	`

	var name string
	err := q.QueryRowContext(ctx, query, id, quantity, time.Now()).Scan(&name)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to reserve stock: %w", err)
	}

	return name, true, nil
}
