package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/stockroom-pos/stockroom/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog operations.
type Service struct {
	repo  Repository
	audit AuditPort
}

// NewService builds Service. audit may be nil.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// NormalizeSKU upper-cases and trims a SKU so lookups are case-insensitive.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

func (s *Service) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, filters)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, ErrNotFound
	}
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) GetProductBySKU(ctx context.Context, sku string) (Product, error) {
	return s.repo.GetProductBySKU(ctx, NormalizeSKU(sku))
}

func (s *Service) CreateProduct(ctx context.Context, product Product) (Product, error) {
	product.SKU = NormalizeSKU(product.SKU)
	if err := validateProduct(product); err != nil {
		return Product{}, err
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, "catalog:product_create", "product", created.ID, map[string]any{"sku": created.SKU})
	return created, nil
}

// UpdateProduct edits catalog fields only. Past sale items keep their own
// snapshots, so renaming or repricing never rewrites history.
func (s *Service) UpdateProduct(ctx context.Context, id int64, product Product) error {
	if id <= 0 {
		return ErrNotFound
	}
	product.SKU = NormalizeSKU(product.SKU)
	if err := validateProduct(product); err != nil {
		return err
	}
	if err := s.repo.UpdateProduct(ctx, id, product); err != nil {
		return err
	}
	s.recordAudit(ctx, "catalog:product_update", "product", id, map[string]any{"sku": product.SKU})
	return nil
}

// DeactivateProduct soft-deletes: the row stays a valid target for historical
// movements and sale items.
func (s *Service) DeactivateProduct(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	if err := s.repo.SetProductActive(ctx, id, false); err != nil {
		return err
	}
	s.recordAudit(ctx, "catalog:product_deactivate", "product", id, nil)
	return nil
}

func (s *Service) ListCategories(ctx context.Context, filters ListFilters) ([]Category, int, error) {
	return s.repo.ListCategories(ctx, filters)
}

func (s *Service) GetCategory(ctx context.Context, id int64) (Category, error) {
	if id <= 0 {
		return Category{}, ErrNotFound
	}
	return s.repo.GetCategory(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, category Category) (Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return Category{}, ErrNameRequired
	}
	created, err := s.repo.CreateCategory(ctx, category)
	if err != nil {
		return Category{}, err
	}
	s.recordAudit(ctx, "catalog:category_create", "category", created.ID, map[string]any{"name": created.Name})
	return created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, category Category) error {
	if id <= 0 {
		return ErrNotFound
	}
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return ErrNameRequired
	}
	return s.repo.UpdateCategory(ctx, id, category)
}

func (s *Service) DeactivateCategory(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	return s.repo.SetCategoryActive(ctx, id, false)
}

func (s *Service) ListSuppliers(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	return s.repo.ListSuppliers(ctx, filters)
}

func (s *Service) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, ErrNotFound
	}
	return s.repo.GetSupplier(ctx, id)
}

func (s *Service) CreateSupplier(ctx context.Context, supplier Supplier) (Supplier, error) {
	supplier.Name = strings.TrimSpace(supplier.Name)
	if supplier.Name == "" {
		return Supplier{}, ErrNameRequired
	}
	created, err := s.repo.CreateSupplier(ctx, supplier)
	if err != nil {
		return Supplier{}, err
	}
	s.recordAudit(ctx, "catalog:supplier_create", "supplier", created.ID, map[string]any{"name": created.Name})
	return created, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, id int64, supplier Supplier) error {
	if id <= 0 {
		return ErrNotFound
	}
	supplier.Name = strings.TrimSpace(supplier.Name)
	if supplier.Name == "" {
		return ErrNameRequired
	}
	return s.repo.UpdateSupplier(ctx, id, supplier)
}

func (s *Service) DeactivateSupplier(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	return s.repo.SetSupplierActive(ctx, id, false)
}

func (s *Service) recordAudit(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    "api",
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}

func validateProduct(p Product) error {
	if p.SKU == "" {
		return ErrSKURequired
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}
	if p.BuyPrice < 0 || p.SellPrice < 0 {
		return ErrNegativePrice
	}
	if p.LowStockThreshold < 0 {
		return ErrNegativeThreshold
	}
	return nil
}
