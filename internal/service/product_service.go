package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"modern-pos/internal/domain"
	"modern-pos/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrInvalidProduct = errors.New("invalid product data")
)

// ProductService defines the interface for product business logic
type ProductService interface {
	ListAvailable(ctx context.Context) ([]*domain.Product, error)
	Create(ctx context.Context, name string, price float64, stock int, createdBy *uuid.UUID) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, update repository.ProductUpdate) (*domain.Product, error)
}

type productService struct {
	products repository.ProductRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(products repository.ProductRepository) ProductService {
	return &productService{products: products}
}

// ListAvailable returns every product with stock remaining
func (s *productService) ListAvailable(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.products.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Create validates and inserts a new product. Price must be positive and
// stock non-negative; a product with zero stock is valid, it just does not
// show up at the register until restocked.
func (s *productService) Create(ctx context.Context, name string, price float64, stock int, createdBy *uuid.UUID) (*domain.Product, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	}
	if stock < 0 {
		return nil, fmt.Errorf("%w: stock must be non-negative", ErrInvalidProduct)
	}

	product := &domain.Product{
		ID:             uuid.New(),
		Name:           name,
		Price:          price,
		Stock:          stock,
		LastModifiedBy: createdBy,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// Update validates the provided fields and applies only those. Direct stock
// edits go through here as well; they respect the same non-negativity rule
// as sale reservations.
func (s *productService) Update(ctx context.Context, id uuid.UUID, update repository.ProductUpdate) (*domain.Product, error) {
	if update.Price == nil && update.Stock == nil {
		return nil, fmt.Errorf("%w: price or stock must be provided", ErrInvalidProduct)
	}
	if update.Price != nil && *update.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	}
	if update.Stock != nil && *update.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must be non-negative", ErrInvalidProduct)
	}

	product, err := s.products.Update(ctx, id, update)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}
