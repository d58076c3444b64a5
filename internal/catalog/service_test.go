package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	products   map[int64]Product
	categories map[int64]Category
	suppliers  map[int64]Supplier
	nextID     int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		products:   map[int64]Product{},
		categories: map[int64]Category{},
		suppliers:  map[int64]Supplier{},
	}
}

func (m *mockRepo) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockRepo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) GetProductBySKU(ctx context.Context, sku string) (Product, error) {
	for _, p := range m.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (m *mockRepo) CreateProduct(ctx context.Context, product Product) (Product, error) {
	for _, p := range m.products {
		if p.SKU == product.SKU {
			return Product{}, ErrDuplicateSKU
		}
	}
	m.nextID++
	product.ID = m.nextID
	product.CurrentStock = 0
	product.IsActive = true
	m.products[product.ID] = product
	return product, nil
}

func (m *mockRepo) UpdateProduct(ctx context.Context, id int64, product Product) error {
	existing, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	// Stock is owned by the ledger; catalog updates never touch it.
	product.ID = id
	product.CurrentStock = existing.CurrentStock
	product.IsActive = existing.IsActive
	m.products[id] = product
	return nil
}

func (m *mockRepo) SetProductActive(ctx context.Context, id int64, active bool) error {
	p, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	p.IsActive = active
	m.products[id] = p
	return nil
}

func (m *mockRepo) ListCategories(ctx context.Context, filters ListFilters) ([]Category, int, error) {
	return nil, 0, nil
}

func (m *mockRepo) GetCategory(ctx context.Context, id int64) (Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return Category{}, ErrNotFound
	}
	return c, nil
}

func (m *mockRepo) CreateCategory(ctx context.Context, category Category) (Category, error) {
	m.nextID++
	category.ID = m.nextID
	m.categories[category.ID] = category
	return category, nil
}

func (m *mockRepo) UpdateCategory(ctx context.Context, id int64, category Category) error {
	if _, ok := m.categories[id]; !ok {
		return ErrNotFound
	}
	category.ID = id
	m.categories[id] = category
	return nil
}

func (m *mockRepo) SetCategoryActive(ctx context.Context, id int64, active bool) error {
	return nil
}

func (m *mockRepo) ListSuppliers(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	return nil, 0, nil
}

func (m *mockRepo) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	s, ok := m.suppliers[id]
	if !ok {
		return Supplier{}, ErrNotFound
	}
	return s, nil
}

func (m *mockRepo) CreateSupplier(ctx context.Context, supplier Supplier) (Supplier, error) {
	m.nextID++
	supplier.ID = m.nextID
	m.suppliers[supplier.ID] = supplier
	return supplier, nil
}

func (m *mockRepo) UpdateSupplier(ctx context.Context, id int64, supplier Supplier) error {
	if _, ok := m.suppliers[id]; !ok {
		return ErrNotFound
	}
	return nil
}

func (m *mockRepo) SetSupplierActive(ctx context.Context, id int64, active bool) error {
	return nil
}

func TestNormalizeSKU(t *testing.T) {
	assert.Equal(t, "ABC-001", NormalizeSKU("  abc-001 "))
	assert.Equal(t, "X1", NormalizeSKU("x1"))
}

func TestCreateProductNormalisesAndValidates(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, Product{SKU: "sku-001", Name: "Beans", BuyPrice: 3.5, SellPrice: 7})
	require.NoError(t, err)
	assert.Equal(t, "SKU-001", created.SKU)
	assert.Zero(t, created.CurrentStock)
	assert.True(t, created.IsActive)

	// Same SKU in different case collides after normalisation.
	_, err = svc.CreateProduct(ctx, Product{SKU: "SKU-001", Name: "Beans 2", SellPrice: 8})
	assert.ErrorIs(t, err, ErrDuplicateSKU)

	cases := []struct {
		name    string
		product Product
		want    error
	}{
		{"missing sku", Product{Name: "X"}, ErrSKURequired},
		{"missing name", Product{SKU: "A"}, ErrNameRequired},
		{"negative price", Product{SKU: "A", Name: "X", SellPrice: -1}, ErrNegativePrice},
		{"negative threshold", Product{SKU: "A", Name: "X", LowStockThreshold: -2}, ErrNegativeThreshold},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, tc.product)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUpdateProductLeavesStockAlone(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, Product{SKU: "A1", Name: "Widget", SellPrice: 4})
	require.NoError(t, err)

	p := repo.products[created.ID]
	p.CurrentStock = 17
	repo.products[created.ID] = p

	require.NoError(t, svc.UpdateProduct(ctx, created.ID, Product{SKU: "a1", Name: "Widget XL", SellPrice: 5}))

	updated, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget XL", updated.Name)
	assert.Equal(t, 17, updated.CurrentStock)
}

func TestGetProductBySKUIsCaseInsensitive(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, Product{SKU: "COF-01", Name: "Coffee", SellPrice: 9})
	require.NoError(t, err)

	found, err := svc.GetProductBySKU(ctx, "cof-01")
	require.NoError(t, err)
	assert.Equal(t, "Coffee", found.Name)
}

func TestDeactivateProductSoftDeletes(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, Product{SKU: "B2", Name: "Mug", SellPrice: 3})
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateProduct(ctx, created.ID))

	// Row still exists for historical references.
	p, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, p.IsActive)
}

func TestCategoryAndSupplierRequireName(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, Category{Name: "  "})
	assert.ErrorIs(t, err, ErrNameRequired)
	_, err = svc.CreateSupplier(ctx, Supplier{})
	assert.ErrorIs(t, err, ErrNameRequired)

	cat, err := svc.CreateCategory(ctx, Category{Name: " Drinks "})
	require.NoError(t, err)
	assert.Equal(t, "Drinks", cat.Name)
}
