// Package revenue adjusts the revenue recognised for a vendor.
package revenue

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/drinkhub/internal/domain/user"
)

// Tx is the transactional storage the reconciler writes through.
type Tx interface {
	// AddVendorRevenue returns user.ErrVendorNotFound for unknown vendors.
	AddVendorRevenue(ctx context.Context, vendorID, delta int64) error
}

// Reconciler applies revenue adjustments. Revenue is not clamped and may go
// negative.
type Reconciler struct{}

// NewReconciler creates a Reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Increase recognises amount for the vendor.
func (r *Reconciler) Increase(ctx context.Context, tx Tx, vendorID, amount int64) error {
	return r.add(ctx, tx, vendorID, amount)
}

// Decrease reverses amount previously recognised for the vendor.
func (r *Reconciler) Decrease(ctx context.Context, tx Tx, vendorID, amount int64) error {
	return r.add(ctx, tx, vendorID, -amount)
}

func (r *Reconciler) add(ctx context.Context, tx Tx, vendorID, delta int64) error {
	if err := tx.AddVendorRevenue(ctx, vendorID, delta); err != nil {
		if errors.Is(err, user.ErrVendorNotFound) {
			return user.ErrVendorNotFound
		}
		return errors.Wrap(err, "update vendor revenue")
	}
	return nil
}
