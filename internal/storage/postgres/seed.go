package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/drinkhub/internal/domain/discount"
	"github.com/xenking/drinkhub/internal/domain/product"
	"github.com/xenking/drinkhub/internal/domain/user"
)

const (
	upsertUserSQL = `INSERT INTO users (id, email, name, role) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name, role = EXCLUDED.role`

	upsertCustomerSQL = `INSERT INTO customers (user_id, membership_level, stored_balance) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET membership_level = EXCLUDED.membership_level,
			stored_balance = EXCLUDED.stored_balance`

	upsertVendorSQL = `INSERT INTO vendors (user_id, revenue, is_active, is_verified) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET is_active = EXCLUDED.is_active, is_verified = EXCLUDED.is_verified`

	upsertAdminSQL = `INSERT INTO admins (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`

	upsertProductSQL = `INSERT INTO products (id, vendor_id, name, image, price, size_options)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET vendor_id = EXCLUDED.vendor_id, name = EXCLUDED.name,
			image = EXCLUDED.image, price = EXCLUDED.price, size_options = EXCLUDED.size_options`

	upsertPolicySQL = `INSERT INTO discount_policies (id, vendor_id, kind, value, min_purchase, max_discount,
			min_membership_level, is_available, starts_at, expires_at, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET vendor_id = EXCLUDED.vendor_id, kind = EXCLUDED.kind,
			value = EXCLUDED.value, min_purchase = EXCLUDED.min_purchase, max_discount = EXCLUDED.max_discount,
			min_membership_level = EXCLUDED.min_membership_level, is_available = EXCLUDED.is_available,
			starts_at = EXCLUDED.starts_at, expires_at = EXCLUDED.expires_at, description = EXCLUDED.description`

	// Explicit ids leave the sequences behind; move them past the seeded rows.
	syncSequencesSQL = `
		SELECT setval(pg_get_serial_sequence('users', 'id'), GREATEST((SELECT MAX(id) FROM users), 1));
		SELECT setval(pg_get_serial_sequence('products', 'id'), GREATEST((SELECT MAX(id) FROM products), 1));
		SELECT setval(pg_get_serial_sequence('discount_policies', 'id'), GREATEST((SELECT MAX(id) FROM discount_policies), 1));`
)

// Seeder upserts reference data for development and tests.
type Seeder struct {
	pool *pgxpool.Pool
}

// NewSeeder returns a Seeder that uses the given pool.
func NewSeeder(pool *pgxpool.Pool) *Seeder {
	return &Seeder{pool: pool}
}

// SeedData is the content of a seed file.
type SeedData struct {
	Users    []user.User
	Products []product.Product
	Policies []discount.Policy
}

// Seed upserts everything in one transaction.
func (s *Seeder) Seed(ctx context.Context, data SeedData) error {
	return pgx.BeginFunc(ctx, s.pool, func(t pgx.Tx) error {
		for _, u := range data.Users {
			if err := upsertUser(ctx, t, u); err != nil {
				return err
			}
		}
		for _, p := range data.Products {
			options, err := json.Marshal(p.SizeOptions)
			if err != nil {
				return fmt.Errorf("encoding size options of product %d: %w", p.ID, err)
			}
			if _, err := t.Exec(ctx, upsertProductSQL, p.ID, p.VendorID, p.Name, p.Image, p.Price, string(options)); err != nil {
				return fmt.Errorf("upserting product %d: %w", p.ID, err)
			}
		}
		for _, p := range data.Policies {
			if _, err := t.Exec(ctx, upsertPolicySQL,
				p.ID, p.VendorID, string(p.Kind), p.Value, p.MinPurchase, p.MaxDiscount,
				p.MinMembershipLevel, p.Available, p.StartsAt, p.ExpiresAt, p.Description,
			); err != nil {
				return fmt.Errorf("upserting policy %d: %w", p.ID, err)
			}
		}
		if _, err := t.Exec(ctx, syncSequencesSQL); err != nil {
			return fmt.Errorf("syncing sequences: %w", err)
		}
		return nil
	})
}

func upsertUser(ctx context.Context, q querier, u user.User) error {
	if !u.Consistent() {
		return fmt.Errorf("user %d: attributes do not match role %q", u.ID, u.Role)
	}
	if _, err := q.Exec(ctx, upsertUserSQL, u.ID, u.Email, u.Name, string(u.Role)); err != nil {
		return fmt.Errorf("upserting user %d: %w", u.ID, err)
	}

	var err error
	switch {
	case u.Customer != nil:
		_, err = q.Exec(ctx, upsertCustomerSQL, u.ID, u.Customer.MembershipLevel, u.Customer.StoredBalance)
	case u.Vendor != nil:
		_, err = q.Exec(ctx, upsertVendorSQL, u.ID, u.Vendor.Revenue, u.Vendor.Active, u.Vendor.Verified)
	case u.Admin != nil:
		_, err = q.Exec(ctx, upsertAdminSQL, u.ID)
	}
	if err != nil {
		return fmt.Errorf("upserting %s attributes of user %d: %w", u.Role, u.ID, err)
	}
	return nil
}
