package catalog

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("catalog: record not found")
	// ErrDuplicateSKU indicates another product already uses the SKU.
	ErrDuplicateSKU = errors.New("catalog: sku already in use")
	// ErrDuplicateName indicates a uniqueness violation on name.
	ErrDuplicateName = errors.New("catalog: name already in use")

	// Validation errors.
	ErrSKURequired       = errors.New("catalog: product sku is required")
	ErrNameRequired      = errors.New("catalog: name is required")
	ErrNegativePrice     = errors.New("catalog: price must be >= 0")
	ErrNegativeThreshold = errors.New("catalog: low stock threshold must be >= 0")
)
