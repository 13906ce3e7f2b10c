package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/drinkhub/internal/domain/cart"
	"github.com/xenking/drinkhub/internal/domain/discount"
	"github.com/xenking/drinkhub/internal/domain/product"
)

const (
	getProductsByIDsSQL = `SELECT id, vendor_id, name, image, price, size_options
		FROM products WHERE id = ANY($1)`

	getPolicySQL = `SELECT id, vendor_id, kind, value, min_purchase, max_discount, min_membership_level,
			is_available, starts_at, expires_at, description
		FROM discount_policies WHERE id = $1`

	policyUsedSQL = `SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE customer_id = $1 AND discount_policy_id = $2 AND refund_status <> 'refunded'
		)`
)

var _ cart.Catalog = (*ProductRepository)(nil)

// ProductRepository serves product lookups outside order transactions.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	return getProducts(ctx, r.pool, ids)
}

// GetProducts returns products matching any of the given IDs.
func (t *tx) GetProducts(ctx context.Context, ids []int64) ([]product.Product, error) {
	return getProducts(ctx, t.q, ids)
}

func getProducts(ctx context.Context, q querier, ids []int64) ([]product.Product, error) {
	rows, err := q.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p       product.Product
		options map[string]int64
	)
	err := row.Scan(&p.ID, &p.VendorID, &p.Name, &p.Image, &p.Price, &options)
	p.SizeOptions = options
	return p, err
}

// GetPolicy returns a discount policy by id.
func (t *tx) GetPolicy(ctx context.Context, id int64) (*discount.Policy, error) {
	rows, err := t.q.Query(ctx, getPolicySQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting policy %d: %w", id, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPolicy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrPolicyNotFound
		}
		return nil, fmt.Errorf("getting policy %d: %w", id, err)
	}
	return &p, nil
}

func scanPolicy(row pgx.CollectableRow) (discount.Policy, error) {
	var (
		p    discount.Policy
		kind string
	)
	err := row.Scan(
		&p.ID, &p.VendorID, &kind, &p.Value, &p.MinPurchase, &p.MaxDiscount, &p.MinMembershipLevel,
		&p.Available, &p.StartsAt, &p.ExpiresAt, &p.Description,
	)
	p.Kind = discount.Kind(kind)
	return p, err
}

// PolicyUsed reports whether a non-refunded order of the customer applied
// the policy.
func (t *tx) PolicyUsed(ctx context.Context, customerID, policyID int64) (bool, error) {
	var used bool
	if err := t.q.QueryRow(ctx, policyUsedSQL, customerID, policyID).Scan(&used); err != nil {
		return false, fmt.Errorf("checking usage of policy %d: %w", policyID, err)
	}
	return used, nil
}
