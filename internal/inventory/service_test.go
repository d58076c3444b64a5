package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	products  map[int64]*ProductStock
	movements []StockMovement
	nextID    int64
	txCalls   int
}

func newMockRepository() *mockRepository {
	return &mockRepository{products: map[int64]*ProductStock{}}
}

func (m *mockRepository) addProduct(id int64, name string, stock int) {
	m.products[id] = &ProductStock{ID: id, SKU: name, Name: name, CurrentStock: stock, IsActive: true}
}

// WithTx snapshots state before running the callback and restores it on
// error, mirroring a rollback.
func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.txCalls++
	savedProducts := make(map[int64]*ProductStock, len(m.products))
	for id, p := range m.products {
		copied := *p
		savedProducts[id] = &copied
	}
	savedMovements := len(m.movements)
	savedNextID := m.nextID

	if err := fn(ctx, (*mockTx)(m)); err != nil {
		m.products = savedProducts
		m.movements = m.movements[:savedMovements]
		m.nextID = savedNextID
		return err
	}
	return nil
}

func (m *mockRepository) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	var out []StockMovement
	for i := len(m.movements) - 1; i >= 0; i-- {
		mv := m.movements[i]
		if mv.ProductID != filter.ProductID {
			continue
		}
		if filter.Type != "" && mv.Type != filter.Type {
			continue
		}
		out = append(out, mv)
	}
	return out, nil
}

type mockTx mockRepository

func (m *mockTx) GetProductForUpdate(ctx context.Context, productID int64) (ProductStock, error) {
	p, ok := m.products[productID]
	if !ok {
		return ProductStock{}, ErrProductNotFound
	}
	return *p, nil
}

func (m *mockTx) InsertMovement(ctx context.Context, movement StockMovement) (StockMovement, error) {
	m.nextID++
	movement.ID = m.nextID
	m.movements = append(m.movements, movement)
	return movement, nil
}

func (m *mockTx) UpdateProductStock(ctx context.Context, productID int64, newStock int) error {
	p, ok := m.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	p.CurrentStock = newStock
	return nil
}

func TestAddStockRecordsLedgerAndAggregate(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "P1", 0)
	svc := NewService(repo, nil, nil, nil)

	cost := 3.50
	movement, err := svc.AddStock(context.Background(), AddStockInput{
		ProductID: 1,
		Quantity:  50,
		UnitCost:  &cost,
		Reference: "PO-1001",
	})
	require.NoError(t, err)

	assert.Equal(t, MovementTypeIn, movement.Type)
	assert.Equal(t, 50, movement.Quantity)
	assert.Equal(t, 0, movement.PreviousStock)
	assert.Equal(t, 50, movement.NewStock)
	require.NotNil(t, movement.UnitCost)
	assert.InDelta(t, 3.50, *movement.UnitCost, 0.001)
	assert.Equal(t, 50, repo.products[1].CurrentStock)
	assert.Len(t, repo.movements, 1)
}

func TestRemoveStockRecordsOutEntry(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "P1", 50)
	svc := NewService(repo, nil, nil, nil)

	movement, err := svc.RemoveStock(context.Background(), RemoveStockInput{
		ProductID: 1,
		Quantity:  5,
		Reference: "Damaged",
	})
	require.NoError(t, err)

	assert.Equal(t, MovementTypeOut, movement.Type)
	assert.Equal(t, -5, movement.Quantity)
	assert.Equal(t, 50, movement.PreviousStock)
	assert.Equal(t, 45, movement.NewStock)
	assert.Equal(t, "Damaged", movement.Reference)
	assert.Equal(t, 45, repo.products[1].CurrentStock)
}

func TestRemoveStockRejectsOversell(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "P1", 3)
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.RemoveStock(context.Background(), RemoveStockInput{ProductID: 1, Quantity: 5})
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "P1", insufficient.ProductName)
	assert.Equal(t, 3, insufficient.Available)
	assert.Equal(t, 5, insufficient.Requested)

	assert.Equal(t, 3, repo.products[1].CurrentStock)
	assert.Empty(t, repo.movements)
}

func TestMutationsRejectNonPositiveQuantity(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "P1", 10)
	svc := NewService(repo, nil, nil, nil)

	for _, qty := range []int{0, -4} {
		_, err := svc.AddStock(context.Background(), AddStockInput{ProductID: 1, Quantity: qty})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		_, err = svc.RemoveStock(context.Background(), RemoveStockInput{ProductID: 1, Quantity: qty})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}
	// Caller-contract violations fail before any transaction opens.
	assert.Zero(t, repo.txCalls)
}

func TestAdjustStockRejectsNoOp(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "P1", 12)
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.AdjustStock(context.Background(), AdjustStockInput{ProductID: 1, NewLevel: 12})
	assert.ErrorIs(t, err, ErrNoChange)
	assert.Empty(t, repo.movements)
	assert.Equal(t, 12, repo.products[1].CurrentStock)
}

func TestAdjustStockWritesSignedDelta(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "P1", 45)
	svc := NewService(repo, nil, nil, nil)

	movement, err := svc.AdjustStock(context.Background(), AdjustStockInput{ProductID: 1, NewLevel: 40})
	require.NoError(t, err)
	assert.Equal(t, MovementTypeAdjustment, movement.Type)
	assert.Equal(t, -5, movement.Quantity)
	assert.Equal(t, 45, movement.PreviousStock)
	assert.Equal(t, 40, movement.NewStock)
	assert.Equal(t, 40, repo.products[1].CurrentStock)
}

func TestAdjustStockRejectsNegativeLevel(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "P1", 5)
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.AdjustStock(context.Background(), AdjustStockInput{ProductID: 1, NewLevel: -1})
	assert.ErrorIs(t, err, ErrInvalidStockLevel)
	assert.Zero(t, repo.txCalls)
}

func TestMutationsAgainstUnknownProduct(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.AddStock(context.Background(), AddStockInput{ProductID: 99, Quantity: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)
	_, err = svc.AdjustStock(context.Background(), AdjustStockInput{ProductID: 99, NewLevel: 4})
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Empty(t, repo.movements)
}

// The aggregate must always equal the newest movement's new_stock and the sum
// of all movement deltas.
func TestLedgerAndAggregateStayInLockstep(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "P1", 0)
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: 1, Quantity: 50})
	require.NoError(t, err)
	_, err = svc.RemoveStock(ctx, RemoveStockInput{ProductID: 1, Quantity: 5})
	require.NoError(t, err)
	_, err = svc.AdjustStock(ctx, AdjustStockInput{ProductID: 1, NewLevel: 48})
	require.NoError(t, err)
	_, err = svc.RemoveStock(ctx, RemoveStockInput{ProductID: 1, Quantity: 100})
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)

	sum := 0
	for _, m := range repo.movements {
		sum += m.Quantity
	}
	last := repo.movements[len(repo.movements)-1]
	assert.Equal(t, repo.products[1].CurrentStock, last.NewStock)
	assert.Equal(t, repo.products[1].CurrentStock, sum)
	assert.Equal(t, 48, repo.products[1].CurrentStock)
}

func TestMovementHistoryValidatesProduct(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.MovementHistory(context.Background(), MovementFilter{ProductID: 0})
	assert.True(t, errors.Is(err, ErrProductNotFound))
}

func TestMovementHistoryNewestFirstWithTypeFilter(t *testing.T) {
	repo := newMockRepository()
	repo.addProduct(1, "P1", 0)
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: 1, Quantity: 10})
	require.NoError(t, err)
	_, err = svc.RemoveStock(ctx, RemoveStockInput{ProductID: 1, Quantity: 4})
	require.NoError(t, err)

	history, err := svc.MovementHistory(ctx, MovementFilter{ProductID: 1})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, MovementTypeOut, history[0].Type)
	assert.Equal(t, MovementTypeIn, history[1].Type)

	outs, err := svc.MovementHistory(ctx, MovementFilter{ProductID: 1, Type: MovementTypeOut})
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, -4, outs[0].Quantity)
}
