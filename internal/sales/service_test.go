package sales

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockroom-pos/stockroom/internal/inventory"
)

type mockRepository struct {
	products  map[int64]*inventory.ProductStock
	movements []inventory.StockMovement
	sales     map[int64]Sale
	items     map[int64][]SaleItem
	counters  map[string]int
	nextID    int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		products: map[int64]*inventory.ProductStock{},
		sales:    map[int64]Sale{},
		items:    map[int64][]SaleItem{},
		counters: map[string]int{},
	}
}

func (m *mockRepository) addProduct(id int64, name string, stock int) {
	m.products[id] = &inventory.ProductStock{ID: id, SKU: name, Name: name, CurrentStock: stock, IsActive: true}
}

// WithTx snapshots state and restores it when the callback fails, mirroring a
// rollback.
func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	savedProducts := make(map[int64]*inventory.ProductStock, len(m.products))
	for id, p := range m.products {
		copied := *p
		savedProducts[id] = &copied
	}
	savedMovements := len(m.movements)
	savedSales := make(map[int64]Sale, len(m.sales))
	for id, s := range m.sales {
		savedSales[id] = s
	}
	savedItems := make(map[int64][]SaleItem, len(m.items))
	for id, list := range m.items {
		savedItems[id] = append([]SaleItem(nil), list...)
	}
	savedCounters := make(map[string]int, len(m.counters))
	for day, seq := range m.counters {
		savedCounters[day] = seq
	}
	savedNextID := m.nextID

	if err := fn(ctx, (*mockTx)(m)); err != nil {
		m.products = savedProducts
		m.movements = m.movements[:savedMovements]
		m.sales = savedSales
		m.items = savedItems
		m.counters = savedCounters
		m.nextID = savedNextID
		return err
	}
	return nil
}

func (m *mockRepository) GetSale(ctx context.Context, id int64) (Sale, error) {
	s, ok := m.sales[id]
	if !ok {
		return Sale{}, ErrSaleNotFound
	}
	s.Items = append([]SaleItem(nil), m.items[id]...)
	return s, nil
}

func (m *mockRepository) ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	var out []Sale
	for _, s := range m.sales {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *mockRepository) DeleteSale(ctx context.Context, id int64) error {
	if _, ok := m.sales[id]; !ok {
		return ErrSaleNotFound
	}
	delete(m.sales, id)
	delete(m.items, id)
	return nil
}

type mockTx mockRepository

func (m *mockTx) GetProductForUpdate(ctx context.Context, productID int64) (inventory.ProductStock, error) {
	p, ok := m.products[productID]
	if !ok {
		return inventory.ProductStock{}, inventory.ErrProductNotFound
	}
	return *p, nil
}

func (m *mockTx) NextSaleSequence(ctx context.Context, day time.Time) (int, error) {
	key := day.Format("2006-01-02")
	m.counters[key]++
	return m.counters[key], nil
}

func (m *mockTx) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	m.nextID++
	sale.ID = m.nextID
	sale.Items = nil
	m.sales[sale.ID] = sale
	return sale.ID, nil
}

func (m *mockTx) InsertSaleItem(ctx context.Context, item SaleItem) (int64, error) {
	m.nextID++
	item.ID = m.nextID
	m.items[item.SaleID] = append(m.items[item.SaleID], item)
	return item.ID, nil
}

func (m *mockTx) InsertMovement(ctx context.Context, movement inventory.StockMovement) (inventory.StockMovement, error) {
	m.nextID++
	movement.ID = m.nextID
	m.movements = append(m.movements, movement)
	return movement, nil
}

func (m *mockTx) UpdateProductStock(ctx context.Context, productID int64, newStock int) error {
	p, ok := m.products[productID]
	if !ok {
		return inventory.ErrProductNotFound
	}
	p.CurrentStock = newStock
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCompleteSaleTotalsAndStock(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "P1", 45)
	repo.addProduct(2, "P2", 120)
	svc := NewService(repo, nil, nil, nil)
	svc.now = fixedClock(time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC))

	sale, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
		Items: []CartLine{
			{ProductID: 1, ProductName: "P1", Quantity: 2, UnitPrice: 12.99, UnitCost: 3.50},
			{ProductID: 2, ProductName: "P2", Quantity: 1, UnitPrice: 8.99, UnitCost: 2.00},
		},
	})
	require.NoError(t, err)

	assert.InDelta(t, 34.97, sale.TotalAmount, 0.001)
	assert.InDelta(t, 9.00, sale.TotalCost, 0.001)
	assert.InDelta(t, 25.97, sale.TotalProfit, 0.001)
	assert.Equal(t, 2, sale.ItemCount)
	assert.Equal(t, "SALE-20240501-001", sale.SaleNumber)
	require.Len(t, sale.Items, 2)

	assert.Equal(t, 43, repo.products[1].CurrentStock)
	assert.Equal(t, 119, repo.products[2].CurrentStock)

	require.Len(t, repo.movements, 2)
	for _, m := range repo.movements {
		assert.Equal(t, inventory.MovementTypeSale, m.Type)
		assert.Equal(t, sale.SaleNumber, m.Reference)
	}
	assert.Equal(t, -2, repo.movements[0].Quantity)
	assert.Equal(t, 45, repo.movements[0].PreviousStock)
	assert.Equal(t, 43, repo.movements[0].NewStock)
	assert.Equal(t, -1, repo.movements[1].Quantity)
}

// One bad line rolls back the whole sale, including lines that were
// individually valid.
func TestCompleteSaleAtomicOnInsufficientStock(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "P1", 45)
	repo.addProduct(2, "P2", 0)
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
		Items: []CartLine{
			{ProductID: 1, ProductName: "P1", Quantity: 2, UnitPrice: 12.99, UnitCost: 3.50},
			{ProductID: 2, ProductName: "P2", Quantity: 1, UnitPrice: 8.99, UnitCost: 2.00},
		},
	})
	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "P2", insufficient.ProductName)
	assert.Equal(t, 0, insufficient.Available)
	assert.Equal(t, 1, insufficient.Requested)

	assert.Equal(t, 45, repo.products[1].CurrentStock)
	assert.Empty(t, repo.sales)
	assert.Empty(t, repo.items)
	assert.Empty(t, repo.movements)
}

func TestCompleteSaleNumbersSequencePerDay(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "P1", 100)
	svc := NewService(repo, nil, nil, nil)
	svc.now = fixedClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))

	cart := CompleteSaleInput{Items: []CartLine{{ProductID: 1, ProductName: "P1", Quantity: 1, UnitPrice: 5, UnitCost: 2}}}

	first, err := svc.CompleteSale(context.Background(), cart)
	require.NoError(t, err)
	second, err := svc.CompleteSale(context.Background(), cart)
	require.NoError(t, err)

	assert.Equal(t, "SALE-20240501-001", first.SaleNumber)
	assert.Equal(t, "SALE-20240501-002", second.SaleNumber)

	svc.now = fixedClock(time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC))
	third, err := svc.CompleteSale(context.Background(), cart)
	require.NoError(t, err)
	assert.Equal(t, "SALE-20240502-001", third.SaleNumber)
}

func TestCompleteSaleValidatesBeforeTransaction(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "P1", 10)
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.CompleteSale(context.Background(), CompleteSaleInput{})
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = svc.CompleteSale(context.Background(), CompleteSaleInput{
		Items: []CartLine{{ProductID: 1, ProductName: "P1", Quantity: 0, UnitPrice: 5}},
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Empty(t, repo.movements)
}

func TestCompleteSaleUnknownProduct(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
		Items: []CartLine{{ProductID: 7, ProductName: "Ghost", Quantity: 1, UnitPrice: 5}},
	})
	require.ErrorIs(t, err, inventory.ErrProductNotFound)
	assert.Contains(t, err.Error(), "Ghost")
}

// Two lines of the same product are validated against the projected stock, so
// together they cannot take more than the row holds.
func TestCompleteSaleProjectsStockAcrossLines(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "P1", 3)
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
		Items: []CartLine{
			{ProductID: 1, ProductName: "P1", Quantity: 2, UnitPrice: 5, UnitCost: 1},
			{ProductID: 1, ProductName: "P1", Quantity: 2, UnitPrice: 5, UnitCost: 1},
		},
	})
	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Available)
	assert.Equal(t, 2, insufficient.Requested)
	assert.Equal(t, 3, repo.products[1].CurrentStock)

	sale, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
		Items: []CartLine{
			{ProductID: 1, ProductName: "P1", Quantity: 2, UnitPrice: 5, UnitCost: 1},
			{ProductID: 1, ProductName: "P1", Quantity: 1, UnitPrice: 5, UnitCost: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, repo.products[1].CurrentStock)
	require.Len(t, repo.movements, 2)
	assert.Equal(t, 3, repo.movements[0].PreviousStock)
	assert.Equal(t, 1, repo.movements[0].NewStock)
	assert.Equal(t, 1, repo.movements[1].PreviousStock)
	assert.Equal(t, 0, repo.movements[1].NewStock)
	assert.Equal(t, 3, sale.Items[0].Quantity+sale.Items[1].Quantity)
}

// Deleting a sale removes the header and items only. The SALE movements stay
// in the ledger and stock is not restored.
func TestDeleteSaleKeepsLedgerAndStock(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "P1", 10)
	svc := NewService(repo, nil, nil, nil)

	sale, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
		Items: []CartLine{{ProductID: 1, ProductName: "P1", Quantity: 4, UnitPrice: 5, UnitCost: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, 6, repo.products[1].CurrentStock)

	require.NoError(t, svc.DeleteSale(context.Background(), sale.ID))

	assert.Empty(t, repo.sales)
	assert.Empty(t, repo.items)
	assert.Len(t, repo.movements, 1)
	assert.Equal(t, 6, repo.products[1].CurrentStock)

	assert.ErrorIs(t, svc.DeleteSale(context.Background(), sale.ID), ErrSaleNotFound)
}

// Catalog edits after the sale never rewrite the snapshot rows.
func TestSaleItemsKeepHistoricalSnapshot(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "Espresso Beans", 10)
	svc := NewService(repo, nil, nil, nil)

	sale, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
		Items: []CartLine{{ProductID: 1, ProductName: "Espresso Beans", Quantity: 1, UnitPrice: 18.50, UnitCost: 9.00}},
	})
	require.NoError(t, err)

	repo.products[1].Name = "Espresso Beans 1kg (new)"

	loaded, err := svc.GetSale(context.Background(), sale.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "Espresso Beans", loaded.Items[0].ProductName)
	assert.InDelta(t, 18.50, loaded.Items[0].UnitPrice, 0.001)
}

func TestGetSaleRejectsBadID(t *testing.T) {
	svc := NewService(newMockRepository(), nil, nil, nil)
	_, err := svc.GetSale(context.Background(), 0)
	assert.ErrorIs(t, err, ErrSaleNotFound)
}

func TestCompleteSaleManyLinesKeepsOrder(t *testing.T) {
	repo := newMockRepository()
	for i := int64(1); i <= 5; i++ {
		repo.addProduct(i, fmt.Sprintf("P%d", i), 10)
	}
	svc := NewService(repo, nil, nil, nil)

	var lines []CartLine
	for i := int64(5); i >= 1; i-- {
		lines = append(lines, CartLine{ProductID: i, ProductName: fmt.Sprintf("P%d", i), Quantity: 1, UnitPrice: 2, UnitCost: 1})
	}
	sale, err := svc.CompleteSale(context.Background(), CompleteSaleInput{Items: lines})
	require.NoError(t, err)

	// Items come back in cart order even though locking happens in id order.
	require.Len(t, sale.Items, 5)
	for i, item := range sale.Items {
		assert.Equal(t, int64(5-i), item.ProductID)
	}
}
