package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/drinkhub/internal/domain/cart"
)

const (
	lockCartSQL = `SELECT vendor_id FROM carts WHERE customer_id = $1 FOR UPDATE`

	getCartSQL = `SELECT vendor_id FROM carts WHERE customer_id = $1`

	// A header without a vendor holds the row lock for a cart that does not
	// exist yet. It never outlives the transaction that created it.
	ensureCartSQL = `INSERT INTO carts (customer_id) VALUES ($1) ON CONFLICT (customer_id) DO NOTHING`

	listCartItemsSQL = `SELECT product_id, sugar, ice, size, quantity
		FROM cart_items WHERE customer_id = $1 ORDER BY id`

	upsertCartSQL = `INSERT INTO carts (customer_id, vendor_id, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (customer_id) DO UPDATE SET vendor_id = EXCLUDED.vendor_id, updated_at = now()`

	deleteCartItemsSQL = `DELETE FROM cart_items WHERE customer_id = $1`

	insertCartItemSQL = `INSERT INTO cart_items (customer_id, product_id, sugar, ice, size, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)`

	deleteCartSQL = `DELETE FROM carts WHERE customer_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the customer's cart, or an empty cart when none exists.
func (r *CartRepository) Get(ctx context.Context, customerID int64) (*cart.Cart, error) {
	c, err := loadCart(ctx, r.pool, getCartSQL, customerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return &cart.Cart{CustomerID: customerID}, nil
	}
	return c, nil
}

// Mutate applies fn to the locked cart and stores the result.
func (r *CartRepository) Mutate(ctx context.Context, customerID int64, fn func(c *cart.Cart) error) (*cart.Cart, error) {
	var out *cart.Cart
	err := pgx.BeginFunc(ctx, r.pool, func(t pgx.Tx) error {
		if _, err := t.Exec(ctx, ensureCartSQL, customerID); err != nil {
			return fmt.Errorf("ensuring cart of customer %d: %w", customerID, err)
		}
		c, err := loadCart(ctx, t, lockCartSQL, customerID)
		if err != nil {
			return err
		}
		if c == nil {
			c = &cart.Cart{CustomerID: customerID}
		}
		if err := fn(c); err != nil {
			return err
		}
		if err := saveCart(ctx, t, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LockCart returns the customer's cart locked for the rest of the
// transaction.
func (t *tx) LockCart(ctx context.Context, customerID int64) (*cart.Cart, error) {
	c, err := loadCart(ctx, t.q, lockCartSQL, customerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, cart.ErrEmpty
	}
	return c, nil
}

// DeleteCart removes the cart and, by cascade, its items.
func (t *tx) DeleteCart(ctx context.Context, customerID int64) error {
	if _, err := t.q.Exec(ctx, deleteCartSQL, customerID); err != nil {
		return fmt.Errorf("deleting cart of customer %d: %w", customerID, err)
	}
	return nil
}

// loadCart returns nil without error when the customer has no cart.
func loadCart(ctx context.Context, q querier, headerSQL string, customerID int64) (*cart.Cart, error) {
	var vendorID *int64
	if err := q.QueryRow(ctx, headerSQL, customerID).Scan(&vendorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting cart of customer %d: %w", customerID, err)
	}
	c := &cart.Cart{CustomerID: customerID}
	if vendorID != nil {
		c.VendorID = *vendorID
	}

	rows, err := q.Query(ctx, listCartItemsSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing cart items of customer %d: %w", customerID, err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Item, error) {
		var it cart.Item
		err := row.Scan(&it.ProductID, &it.Sugar, &it.Ice, &it.Size, &it.Quantity)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning cart items of customer %d: %w", customerID, err)
	}
	c.Items = items
	return c, nil
}

// saveCart replaces the stored cart with c. An empty cart is deleted.
func saveCart(ctx context.Context, q querier, c *cart.Cart) error {
	if c.Empty() {
		if _, err := q.Exec(ctx, deleteCartSQL, c.CustomerID); err != nil {
			return fmt.Errorf("deleting cart of customer %d: %w", c.CustomerID, err)
		}
		return nil
	}

	if _, err := q.Exec(ctx, upsertCartSQL, c.CustomerID, c.VendorID); err != nil {
		return fmt.Errorf("saving cart of customer %d: %w", c.CustomerID, err)
	}
	if _, err := q.Exec(ctx, deleteCartItemsSQL, c.CustomerID); err != nil {
		return fmt.Errorf("clearing cart items of customer %d: %w", c.CustomerID, err)
	}
	for _, it := range c.Items {
		if _, err := q.Exec(ctx, insertCartItemSQL,
			c.CustomerID, it.ProductID, it.Sugar, it.Ice, it.Size, it.Quantity,
		); err != nil {
			return fmt.Errorf("inserting cart item of customer %d: %w", c.CustomerID, err)
		}
	}
	return nil
}
