package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"modern-pos/internal/domain"
	"modern-pos/internal/receipt"
	"modern-pos/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidSale = errors.New("invalid sale data")
)

// ErrInsufficientStock is a business-rule rejection carrying the product
// that could not be reserved. It also covers an unknown product id: the
// checkout path deliberately answers both cases the same way.
type ErrInsufficientStock struct {
	ProductID uuid.UUID
}

func (e *ErrInsufficientStock) Error() string {
	return fmt.Sprintf("insufficient stock for product %s", e.ProductID)
}

// CheckoutService coordinates one checkout: it validates the cart, reserves
// stock for every line, and records the sale — all inside one database
// transaction, so either everything persists or nothing does.
type CheckoutService interface {
	Checkout(ctx context.Context, lines []domain.CartLine, claimedTotal float64) (*domain.Sale, error)
	ListTransactions(ctx context.Context) ([]*domain.Sale, error)
	DailyTotals(ctx context.Context, date time.Time) (*domain.DailyTotals, error)
}

type checkoutService struct {
	txRunner repository.TxRunner
	products repository.ProductRepository
	sales    repository.SaleRepository
	printer  receipt.Printer
	logger   *zap.Logger
}

// NewCheckoutService creates a new instance of CheckoutService. printer may
// be nil when no receipt sink is attached.
func NewCheckoutService(
	txRunner repository.TxRunner,
	products repository.ProductRepository,
	sales repository.SaleRepository,
	printer receipt.Printer,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		txRunner: txRunner,
		products: products,
		sales:    sales,
		printer:  printer,
		logger:   logger,
	}
}

// Checkout commits a cart as one sale. The claimed total is only sanity
// checked; the persisted total is recomputed from the lines because clients
// are untrusted. Stock checks and decrements are fused into a single
// conditional update per line, so concurrent checkouts over the same
// product cannot both take the last units.
func (s *checkoutService) Checkout(ctx context.Context, lines []domain.CartLine, claimedTotal float64) (*domain.Sale, error) {
	if len(lines) == 0 || claimedTotal <= 0 {
		return nil, ErrInvalidSale
	}

	total := 0.0
	for _, line := range lines {
		if line.Quantity <= 0 || line.Price < 0 {
			return nil, ErrInvalidSale
		}
		total += float64(line.Quantity) * line.Price
	}
	total = math.Round(total*100) / 100
	if total <= 0 {
		return nil, ErrInvalidSale
	}

	sale := &domain.Sale{
		ID:        uuid.New(),
		Total:     total,
		CreatedAt: time.Now(),
	}

	err := s.txRunner.WithinTx(ctx, func(q repository.Querier) error {
		for _, line := range lines {
			name, ok, err := s.products.ReserveStock(ctx, q, line.ProductID, line.Quantity)
			if err != nil {
				return fmt.Errorf("failed to reserve stock for product %s: %w", line.ProductID, err)
			}
			if !ok {
				return &ErrInsufficientStock{ProductID: line.ProductID}
			}

			sale.Items = append(sale.Items, &domain.SaleItem{
				ID:          uuid.New(),
				SaleID:      sale.ID,
				ProductID:   line.ProductID,
				ProductName: name,
				Quantity:    line.Quantity,
				Price:       line.Price,
			})
		}

		return s.sales.RecordSale(ctx, q, sale)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Sale committed",
		zap.String("sale_id", sale.ID.String()),
		zap.Float64("total", sale.Total),
		zap.Int("items", len(sale.Items)),
	)

	s.dispatchReceipt(sale)

	return sale, nil
}

// dispatchReceipt hands the committed sale to the receipt sink. The sink
// has its own failure mode: a print error is logged and dropped, never
// surfaced to the checkout caller.
func (s *checkoutService) dispatchReceipt(sale *domain.Sale) {
	if s.printer == nil {
		return
	}

	document := receipt.Format(sale)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.printer.Print(ctx, document); err != nil {
			s.logger.Warn("Receipt printing failed",
				zap.String("sale_id", sale.ID.String()),
				zap.Error(err),
			)
		}
	}()
}

// ListTransactions returns the sale history, newest first
func (s *checkoutService) ListTransactions(ctx context.Context) ([]*domain.Sale, error) {
	sales, err := s.sales.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return sales, nil
}

// DailyTotals aggregates the sales of one date
func (s *checkoutService) DailyTotals(ctx context.Context, date time.Time) (*domain.DailyTotals, error) {
	totals, err := s.sales.DailyTotals(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily totals: %w", err)
	}
	return totals, nil
}
