package product

import (
	"fmt"

	"github.com/xenking/drinkhub/internal/domain/fault"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = fault.New(fault.NotFound, "product_not_found", "product not found")

// NotFoundError identifies the missing product.
type NotFoundError struct {
	ProductID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// Kind classifies the error for transport mapping.
func (e *NotFoundError) Kind() fault.Kind { return fault.NotFound }

// Is lets errors.Is(err, ErrNotFound) match typed errors.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Product is a drink offered by a vendor.
type Product struct {
	ID          int64
	VendorID    int64
	Name        string
	Image       string
	Price       int64
	SizeOptions SizeOptions
}

// SizeOptions maps a size label to its additive surcharge.
type SizeOptions map[string]int64

// Surcharge returns the extra cost for label. Unknown labels and
// unconfigured products cost nothing extra.
func (o SizeOptions) Surcharge(label string) int64 {
	if o == nil {
		return 0
	}
	return o[label]
}

// UnitPrice resolves the per-unit price for the chosen size.
func (p Product) UnitPrice(size string) int64 {
	return p.Price + p.SizeOptions.Surcharge(size)
}
