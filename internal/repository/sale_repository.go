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
	ErrSaleNotPersisted = errors.New("sale could not be persisted")
)

// SaleRepository defines the interface for the append-only sale ledger
type SaleRepository interface {
	// RecordSale writes one sale header and its line items on the supplied
	// Querier. Callers wanting all-or-nothing behavior pass a transaction;
	// on error nothing written by this call may remain visible once the
	// transaction rolls back.
	RecordSale(ctx context.Context, q Querier, sale *domain.Sale) error

	// ListTransactions returns sales newest-first with their items nested.
	// Item names are the ones captured at sale time.
	ListTransactions(ctx context.Context) ([]*domain.Sale, error)

	// DailyTotals aggregates the sales recorded on the given date. A date
	// with no sales yields the zero-valued aggregate, not an error.
	DailyTotals(ctx context.Context, date time.Time) (*domain.DailyTotals, error)
}

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository creates a new instance of SaleRepository
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepository{db: db}
}

// RecordSale inserts the header followed by every line item
func (r *saleRepository) RecordSale(ctx context.Context, q Querier, sale *domain.Sale) error {
	headerQuery := `
		INSERT INTO sales (id, total, created_at)
		VALUES ($1, $2, $3)
	`

	_, err := q.ExecContext(ctx, headerQuery, sale.ID, sale.Total, sale.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to insert sale header: %v", ErrSaleNotPersisted, err)
	}

	itemQuery := `
		INSERT INTO sale_items (id, sale_id, product_id, product_name, quantity, price)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, item := range sale.Items {
		_, err := q.ExecContext(
			ctx,
			itemQuery,
			item.ID,
			sale.ID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.Price,
		)
		if err != nil {
			return fmt.Errorf("%w: failed to insert sale item for product %s: %v", ErrSaleNotPersisted, item.ProductID, err)
		}
	}

	return nil
}

// ListTransactions joins sales with their items in one query and folds the
// rows into nested sales, newest first
func (r *saleRepository) ListTransactions(ctx context.Context) ([]*domain.Sale, error) {
	query := `
		SELECT s.id, s.total, s.created_at,
		       i.id, i.product_id, i.product_name, i.quantity, i.price
		FROM sales s
		LEFT JOIN sale_items i ON i.sale_id = s.id
		ORDER BY s.created_at DESC, s.id, i.id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	sales := []*domain.Sale{}
	byID := make(map[uuid.UUID]*domain.Sale)

	for rows.Next() {
		var (
			saleID      uuid.UUID
			total       float64
			createdAt   time.Time
			itemID      sql.Null[uuid.UUID]
			productID   sql.Null[uuid.UUID]
			productName sql.NullString
			quantity    sql.NullInt64
			price       sql.NullFloat64
		)

		err := rows.Scan(&saleID, &total, &createdAt, &itemID, &productID, &productName, &quantity, &price)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}

		sale, seen := byID[saleID]
		if !seen {
			sale = &domain.Sale{
				ID:        saleID,
				Total:     total,
				CreatedAt: createdAt,
				Items:     []*domain.SaleItem{},
			}
			byID[saleID] = sale
			sales = append(sales, sale)
		}

		// LEFT JOIN yields NULL item columns for a sale with no rows in
		// sale_items; the ledger never writes such a sale but the reader
		// must not choke on one.
		if !itemID.Valid {
			continue
		}

		sale.Items = append(sale.Items, &domain.SaleItem{
			ID:          itemID.V,
			SaleID:      saleID,
			ProductID:   productID.V,
			ProductName: productName.String,
			Quantity:    int(quantity.Int64),
			Price:       price.Float64,
		})
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return sales, nil
}

// DailyTotals counts and sums the sales of a single calendar date
func (r *saleRepository) DailyTotals(ctx context.Context, date time.Time) (*domain.DailyTotals, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(total), 0)
		FROM sales
		WHERE created_at::date = $1::date
	`

	totals := &domain.DailyTotals{Date: date}
	err := r.db.QueryRowContext(ctx, query, date).Scan(&totals.TotalTransactions, &totals.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily totals: %w", err)
	}

	return totals, nil
}
