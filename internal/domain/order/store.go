package order

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/drinkhub/internal/domain/cart"
	"github.com/xenking/drinkhub/internal/domain/discount"
	"github.com/xenking/drinkhub/internal/domain/ledger"
	"github.com/xenking/drinkhub/internal/domain/product"
	"github.com/xenking/drinkhub/internal/domain/revenue"
	"github.com/xenking/drinkhub/internal/domain/user"
)

// ErrCacheMiss is returned by ViewCache.Get when nothing is cached.
var ErrCacheMiss = errors.New("cache miss")

// Tx is the storage surface available inside one order transaction.
type Tx interface {
	discount.Tx
	ledger.Tx
	revenue.Tx

	// GetVendor returns user.ErrVendorNotFound for unknown vendors.
	GetVendor(ctx context.Context, id int64) (*user.Vendor, error)
	// LockCart returns the customer's cart locked until the transaction
	// ends, or cart.ErrEmpty when the customer has none.
	LockCart(ctx context.Context, customerID int64) (*cart.Cart, error)
	DeleteCart(ctx context.Context, customerID int64) error
	GetProducts(ctx context.Context, ids []int64) ([]product.Product, error)

	// CreateOrder inserts the order and its items. It returns
	// discount.ErrPolicyConsumed when the customer already holds a
	// non-refunded order with the same policy.
	CreateOrder(ctx context.Context, o *Order) error
	// LockOrder returns ErrNotFound for unknown ids.
	LockOrder(ctx context.Context, id string) (*Order, error)
	UpdateOrderState(ctx context.Context, o *Order) error

	AppendEvent(ctx context.Context, e Event) error
}

// Store runs order transactions and serves projections.
type Store interface {
	// InTx commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// GetView returns ErrNotFound for unknown ids.
	GetView(ctx context.Context, id string) (*View, error)
}

// ViewCache caches order projections.
type ViewCache interface {
	Get(ctx context.Context, id string) (*View, error)
	// Set stores v unless a projection of the same or a newer version is
	// already cached.
	Set(ctx context.Context, v *View) error
	Delete(ctx context.Context, id string) error
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*View, error) { return nil, ErrCacheMiss }
func (noopCache) Set(context.Context, *View) error            { return nil }
func (noopCache) Delete(context.Context, string) error        { return nil }
