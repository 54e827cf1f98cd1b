package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sale is the immutable record of one completed checkout
type Sale struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	Total     float64     `json:"total" db:"total"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	Items     []*SaleItem `json:"items"`
}

// SaleItem is one line of a sale. ProductName and Price are captured at
// sale time; later product edits do not alter historical line items.
type SaleItem struct {
	ID          uuid.UUID `json:"id" db:"id"`
	SaleID      uuid.UUID `json:"sale_id" db:"sale_id"`
	ProductID   uuid.UUID `json:"product_id" db:"product_id"`
	ProductName string    `json:"product_name" db:"product_name"`
	Quantity    int       `json:"quantity" db:"quantity"`
	Price       float64   `json:"price" db:"price"`
}

// CartLine is one client-proposed line of a not-yet-committed checkout
type CartLine struct {
	ProductID uuid.UUID
	Quantity  int
	Price     float64
}

// DailyTotals aggregates the sales recorded on a single date
type DailyTotals struct {
	Date              time.Time `json:"date"`
	TotalTransactions int       `json:"total_transactions"`
	TotalAmount       float64   `json:"total_amount"`
}
