package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/drinkhub/internal/domain/ledger"
	"github.com/xenking/drinkhub/internal/domain/user"
)

const (
	getCustomerSQL = `SELECT membership_level, stored_balance FROM customers WHERE user_id = $1`

	lockCustomerBalanceSQL = `SELECT stored_balance FROM customers WHERE user_id = $1 FOR UPDATE`

	addCustomerBalanceSQL = `UPDATE customers SET stored_balance = stored_balance + $2 WHERE user_id = $1`

	appendEntrySQL = `INSERT INTO balance_entries (customer_id, delta, reason, order_id, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getVendorSQL = `SELECT revenue, is_active, is_verified FROM vendors WHERE user_id = $1`

	addVendorRevenueSQL = `UPDATE vendors SET revenue = revenue + $2 WHERE user_id = $1`

	listEntriesSQL = `SELECT id, customer_id, delta, reason, COALESCE(order_id::text, ''), COALESCE(reference, ''), created_at
		FROM balance_entries WHERE customer_id = $1 ORDER BY id`
)

// GetCustomer returns the customer attributes of a user.
func (t *tx) GetCustomer(ctx context.Context, id int64) (*user.Customer, error) {
	var c user.Customer
	err := t.q.QueryRow(ctx, getCustomerSQL, id).Scan(&c.MembershipLevel, &c.StoredBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("getting customer %d: %w", id, err)
	}
	return &c, nil
}

// LockCustomerBalance locks the customer row and returns its balance.
func (t *tx) LockCustomerBalance(ctx context.Context, id int64) (int64, error) {
	var balance int64
	if err := t.q.QueryRow(ctx, lockCustomerBalanceSQL, id).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, user.ErrCustomerNotFound
		}
		return 0, fmt.Errorf("locking balance of customer %d: %w", id, err)
	}
	return balance, nil
}

// AddCustomerBalance adjusts the stored balance. The CHECK constraint keeps
// it non-negative.
func (t *tx) AddCustomerBalance(ctx context.Context, id, delta int64) error {
	tag, err := t.q.Exec(ctx, addCustomerBalanceSQL, id, delta)
	if err != nil {
		if _, ok := constraintViolation(err, codeCheckViolation); ok {
			return ledger.ErrInsufficientBalance
		}
		return fmt.Errorf("updating balance of customer %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrCustomerNotFound
	}
	return nil
}

// AppendEntry records a balance movement.
func (t *tx) AppendEntry(ctx context.Context, e ledger.Entry) error {
	_, err := t.q.Exec(ctx, appendEntrySQL,
		e.CustomerID, e.Delta, string(e.Reason), nullIfEmpty(e.OrderID), nullIfEmpty(e.Reference), e.CreatedAt,
	)
	if err != nil {
		if name, ok := constraintViolation(err, codeUniqueViolation); ok && name == "balance_entries_reference_key" {
			return ledger.ErrDuplicateReference
		}
		return fmt.Errorf("appending balance entry for customer %d: %w", e.CustomerID, err)
	}
	return nil
}

// GetVendor returns the vendor attributes of a user.
func (t *tx) GetVendor(ctx context.Context, id int64) (*user.Vendor, error) {
	var v user.Vendor
	if err := t.q.QueryRow(ctx, getVendorSQL, id).Scan(&v.Revenue, &v.Active, &v.Verified); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrVendorNotFound
		}
		return nil, fmt.Errorf("getting vendor %d: %w", id, err)
	}
	return &v, nil
}

// AddVendorRevenue adjusts vendor revenue without clamping.
func (t *tx) AddVendorRevenue(ctx context.Context, id, delta int64) error {
	tag, err := t.q.Exec(ctx, addVendorRevenueSQL, id, delta)
	if err != nil {
		return fmt.Errorf("updating revenue of vendor %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrVendorNotFound
	}
	return nil
}

// ListEntries returns the balance history of a customer, oldest first.
func (s *Store) ListEntries(ctx context.Context, customerID int64) ([]ledger.Entry, error) {
	rows, err := s.pool.Query(ctx, listEntriesSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing balance entries of customer %d: %w", customerID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ledger.Entry, error) {
		var (
			e      ledger.Entry
			reason string
		)
		err := row.Scan(&e.ID, &e.CustomerID, &e.Delta, &reason, &e.OrderID, &e.Reference, &e.CreatedAt)
		e.Reason = ledger.Reason(reason)
		return e, err
	})
}
