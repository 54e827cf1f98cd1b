package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"modern-pos/internal/domain"
	"modern-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

// Mock repositories for testing

type mockProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) add(name string, price float64, stock int) *domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	product := &domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     price,
		Stock:     stock,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.products[product.ID] = product
	return product
}

func (m *mockProductRepository) stockOf(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

func (m *mockProductRepository) snapshot() map[uuid.UUID]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	stocks := make(map[uuid.UUID]int, len(m.products))
	for id, p := range m.products {
		stocks[id] = p.Stock
	}
	return stocks
}

func (m *mockProductRepository) restore(stocks map[uuid.UUID]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, stock := range stocks {
		if p, ok := m.products[id]; ok {
			p.Stock = stock
		}
	}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, id uuid.UUID, update repository.ProductUpdate) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if update.Price != nil {
		product.Price = *update.Price
	}
	if update.Stock != nil {
		product.Stock = *update.Stock
	}
	if update.LastModifiedBy != nil {
		product.LastModifiedBy = update.LastModifiedBy
	}
	product.UpdatedAt = time.Now()
	return product, nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *mockProductRepository) ListAvailable(ctx context.Context) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	available := []*domain.Product{}
	for _, p := range m.products {
		if p.Stock > 0 {
			available = append(available, p)
		}
	}
	return available, nil
}

func (m *mockProductRepository) ReserveStock(ctx context.Context, q repository.Querier, id uuid.UUID, quantity int) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok || product.Stock < quantity {
		return "", false, nil
	}
	product.Stock -= quantity
	return product.Name, true, nil
}

type mockSaleRepository struct {
	mu        sync.Mutex
	sales     []*domain.Sale
	recordErr error
}

func (m *mockSaleRepository) RecordSale(ctx context.Context, q repository.Querier, sale *domain.Sale) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sales = append(m.sales, sale)
	return nil
}

func (m *mockSaleRepository) ListTransactions(ctx context.Context) ([]*domain.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Sale{}, m.sales...), nil
}

func (m *mockSaleRepository) DailyTotals(ctx context.Context, date time.Time) (*domain.DailyTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	totals := &domain.DailyTotals{Date: date}
	for _, sale := range m.sales {
		if sale.CreatedAt.Format("2006-01-02") == date.Format("2006-01-02") {
			totals.TotalTransactions++
			totals.TotalAmount += sale.Total
		}
	}
	return totals, nil
}

// mockTxRunner emulates transactional rollback over the in-memory product
// repository: stock is snapshotted before fn runs and restored when fn
// fails, mirroring what a real database rollback does. Transactions are
// serialized, the way row locks serialize contended stock updates.
type mockTxRunner struct {
	mu       sync.Mutex
	products *mockProductRepository
}

func (m *mockTxRunner) WithinTx(ctx context.Context, fn func(q repository.Querier) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := m.products.snapshot()
	if err := fn(nil); err != nil {
		m.products.restore(before)
		return err
	}
	return nil
}

func newServiceUnderTest() (*mockProductRepository, *mockSaleRepository, CheckoutService) {
	products := newMockProductRepository()
	sales := &mockSaleRepository{}
	svc := NewCheckoutService(&mockTxRunner{products: products}, products, sales, nil, zap.NewNop())
	return products, sales, svc
}

func TestCheckoutRejectsInvalidCarts(t *testing.T) {
	products, sales, svc := newServiceUnderTest()
	product := products.add("Coffee", 3.50, 10)
	ctx := context.Background()

	cases := []struct {
		name  string
		lines []domain.CartLine
		total float64
	}{
		{"empty cart", nil, 10.0},
		{"non-positive total", []domain.CartLine{{ProductID: product.ID, Quantity: 1, Price: 3.50}}, 0},
		{"negative total", []domain.CartLine{{ProductID: product.ID, Quantity: 1, Price: 3.50}}, -5},
		{"zero quantity", []domain.CartLine{{ProductID: product.ID, Quantity: 0, Price: 3.50}}, 3.50},
		{"negative price", []domain.CartLine{{ProductID: product.ID, Quantity: 1, Price: -3.50}}, 3.50},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Checkout(ctx, tc.lines, tc.total)
			if !errors.Is(err, ErrInvalidSale) {
				t.Errorf("Expected ErrInvalidSale, got %v", err)
			}
		})
	}

	// Fail fast means no side effects at all
	if got := products.stockOf(product.ID); got != 10 {
		t.Errorf("Rejected carts changed stock: expected 10, got %d", got)
	}
	if len(sales.sales) != 0 {
		t.Errorf("Rejected carts recorded %d sales", len(sales.sales))
	}
}

func TestCheckoutRecomputesTotalFromLines(t *testing.T) {
	products, sales, svc := newServiceUnderTest()
	coffee := products.add("Coffee", 3.50, 10)
	cookie := products.add("Cookie", 2.50, 10)
	ctx := context.Background()

	lines := []domain.CartLine{
		{ProductID: coffee.ID, Quantity: 2, Price: 3.50},
		{ProductID: cookie.ID, Quantity: 1, Price: 2.50},
	}

	// Client claims a wrong total; the server-side recomputation wins
	sale, err := svc.Checkout(ctx, lines, 100.00)
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}

	if sale.Total != 9.50 {
		t.Errorf("Expected recomputed total 9.50, got %f", sale.Total)
	}
	if len(sales.sales) != 1 {
		t.Fatalf("Expected 1 recorded sale, got %d", len(sales.sales))
	}
	if sales.sales[0].Total != 9.50 {
		t.Errorf("Persisted total is %f, want 9.50", sales.sales[0].Total)
	}
	if len(sale.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(sale.Items))
	}
	if sale.Items[0].ProductName != "Coffee" {
		t.Errorf("Expected snapshot name Coffee, got %q", sale.Items[0].ProductName)
	}
	if got := products.stockOf(coffee.ID); got != 8 {
		t.Errorf("Expected coffee stock 8, got %d", got)
	}
	if got := products.stockOf(cookie.ID); got != 9 {
		t.Errorf("Expected cookie stock 9, got %d", got)
	}
}

func TestCheckoutInsufficientStockRollsBackEarlierLines(t *testing.T) {
	products, sales, svc := newServiceUnderTest()
	coffee := products.add("Coffee", 3.50, 10)
	cake := products.add("Cake", 4.99, 1)
	ctx := context.Background()

	lines := []domain.CartLine{
		{ProductID: coffee.ID, Quantity: 2, Price: 3.50},
		{ProductID: cake.ID, Quantity: 5, Price: 4.99},
	}

	_, err := svc.Checkout(ctx, lines, 31.95)

	var stockErr *ErrInsufficientStock
	if !errors.As(err, &stockErr) {
		t.Fatalf("Expected ErrInsufficientStock, got %v", err)
	}
	if stockErr.ProductID != cake.ID {
		t.Errorf("Expected failing product %s, got %s", cake.ID, stockErr.ProductID)
	}

	// The coffee reservation from the same cart must be rolled back
	if got := products.stockOf(coffee.ID); got != 10 {
		t.Errorf("Expected coffee stock restored to 10, got %d", got)
	}
	if got := products.stockOf(cake.ID); got != 1 {
		t.Errorf("Expected cake stock unchanged at 1, got %d", got)
	}
	if len(sales.sales) != 0 {
		t.Errorf("Rejected checkout recorded %d sales", len(sales.sales))
	}
}

func TestCheckoutUnknownProductRejected(t *testing.T) {
	_, _, svc := newServiceUnderTest()

	ghost := uuid.New()
	_, err := svc.Checkout(context.Background(), []domain.CartLine{
		{ProductID: ghost, Quantity: 1, Price: 1.00},
	}, 1.00)

	var stockErr *ErrInsufficientStock
	if !errors.As(err, &stockErr) {
		t.Fatalf("Expected ErrInsufficientStock, got %v", err)
	}
	if stockErr.ProductID != ghost {
		t.Errorf("Expected failing product %s, got %s", ghost, stockErr.ProductID)
	}
}

func TestCheckoutLedgerFailureRollsBackReservations(t *testing.T) {
	products := newMockProductRepository()
	sales := &mockSaleRepository{recordErr: errors.New("ledger write failed")}
	svc := NewCheckoutService(&mockTxRunner{products: products}, products, sales, nil, zap.NewNop())

	product := products.add("Coffee", 3.50, 10)

	_, err := svc.Checkout(context.Background(), []domain.CartLine{
		{ProductID: product.ID, Quantity: 2, Price: 3.50},
	}, 7.00)
	if err == nil {
		t.Fatal("Expected checkout to fail when the ledger write fails")
	}

	// The whole checkout is one unit: a failed ledger write must undo the
	// stock decrement too.
	if got := products.stockOf(product.ID); got != 10 {
		t.Errorf("Expected stock restored to 10 after ledger failure, got %d", got)
	}
}

type failingPrinter struct{}

func (failingPrinter) Print(ctx context.Context, document string) error {
	return errors.New("printer offline")
}

func TestReceiptFailureDoesNotAffectCommittedSale(t *testing.T) {
	products := newMockProductRepository()
	sales := &mockSaleRepository{}
	svc := NewCheckoutService(&mockTxRunner{products: products}, products, sales, failingPrinter{}, zap.NewNop())

	product := products.add("Coffee", 3.50, 10)

	sale, err := svc.Checkout(context.Background(), []domain.CartLine{
		{ProductID: product.ID, Quantity: 1, Price: 3.50},
	}, 3.50)
	if err != nil {
		t.Fatalf("Checkout failed because of the printer: %v", err)
	}
	if sale == nil {
		t.Fatal("Expected a committed sale")
	}
	if len(sales.sales) != 1 {
		t.Errorf("Expected 1 recorded sale, got %d", len(sales.sales))
	}
}

func TestProperty_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("committed quantities never exceed initial stock", prop.ForAll(
		func(initialStock int, workers int) bool {
			products, sales, svc := newServiceUnderTest()
			product := products.add("Contended", 1.00, initialStock)
			ctx := context.Background()

			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = svc.Checkout(ctx, []domain.CartLine{
						{ProductID: product.ID, Quantity: 1, Price: 1.00},
					}, 1.00)
				}()
			}
			wg.Wait()

			committed := len(sales.sales)
			expected := workers
			if initialStock < workers {
				expected = initialStock
			}
			if committed != expected {
				t.Logf("FAIL: %d commits with stock %d and %d workers", committed, initialStock, workers)
				return false
			}

			finalStock := products.stockOf(product.ID)
			if finalStock < 0 {
				t.Logf("FAIL: stock went negative: %d", finalStock)
				return false
			}
			if finalStock != initialStock-committed {
				t.Logf("FAIL: final stock %d, want %d", finalStock, initialStock-committed)
				return false
			}

			return true
		},
		gen.IntRange(0, 20), // initialStock
		gen.IntRange(1, 30), // workers
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
