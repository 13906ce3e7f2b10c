// Package ledger moves money in and out of customer stored balances and keeps
// an append-only record of every movement.
package ledger

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/drinkhub/internal/domain/fault"
)

var (
	// ErrInsufficientBalance is returned when a debit exceeds the balance.
	ErrInsufficientBalance = fault.New(fault.BusinessRule, "insufficient_balance", "insufficient stored balance")
	// ErrDuplicateReference is returned when an external reference was
	// already recorded.
	ErrDuplicateReference = fault.New(fault.Conflict, "duplicate_reference", "balance movement already recorded")
	// ErrInvalidAmount is returned for negative movements.
	ErrInvalidAmount = fault.New(fault.Validation, "invalid_amount", "amount must not be negative")
)

// Reason explains a balance movement.
type Reason string

const (
	ReasonCheckout Reason = "checkout"
	ReasonRefund   Reason = "refund"
	ReasonTopUp    Reason = "topup"
)

// Movement is a single debit or credit request.
type Movement struct {
	CustomerID int64
	Amount     int64
	Reason     Reason
	OrderID    string
	// Reference is an optional external idempotency key.
	Reference string
}

// Entry is a recorded balance movement. Delta is negative for debits.
type Entry struct {
	ID         int64
	CustomerID int64
	Delta      int64
	Reason     Reason
	OrderID    string
	Reference  string
	CreatedAt  time.Time
}

// Tx is the transactional storage the ledger writes through.
type Tx interface {
	// LockCustomerBalance returns the balance with the customer row locked
	// until the transaction ends.
	LockCustomerBalance(ctx context.Context, customerID int64) (int64, error)
	AddCustomerBalance(ctx context.Context, customerID, delta int64) error
	// AppendEntry returns ErrDuplicateReference on a reused reference.
	AppendEntry(ctx context.Context, e Entry) error
}

// Ledger applies balance movements. It holds no state and must only be used
// inside an enclosing transaction.
type Ledger struct {
	now func() time.Time
}

// New creates a Ledger.
func New() *Ledger {
	return &Ledger{now: time.Now}
}

// Ensure locks the customer's balance and checks it covers amount, without
// writing anything.
func (l *Ledger) Ensure(ctx context.Context, tx Tx, customerID, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	balance, err := tx.LockCustomerBalance(ctx, customerID)
	if err != nil {
		return errors.Wrap(err, "lock balance")
	}
	if balance < amount {
		return ErrInsufficientBalance
	}
	return nil
}

// Debit takes m.Amount from the balance.
func (l *Ledger) Debit(ctx context.Context, tx Tx, m Movement) error {
	if err := l.Ensure(ctx, tx, m.CustomerID, m.Amount); err != nil {
		return err
	}
	return l.apply(ctx, tx, m, -m.Amount)
}

// Credit adds m.Amount to the balance.
func (l *Ledger) Credit(ctx context.Context, tx Tx, m Movement) error {
	if m.Amount < 0 {
		return ErrInvalidAmount
	}
	if _, err := tx.LockCustomerBalance(ctx, m.CustomerID); err != nil {
		return errors.Wrap(err, "lock balance")
	}
	return l.apply(ctx, tx, m, m.Amount)
}

func (l *Ledger) apply(ctx context.Context, tx Tx, m Movement, delta int64) error {
	if err := tx.AppendEntry(ctx, Entry{
		CustomerID: m.CustomerID,
		Delta:      delta,
		Reason:     m.Reason,
		OrderID:    m.OrderID,
		Reference:  m.Reference,
		CreatedAt:  l.now(),
	}); err != nil {
		if errors.Is(err, ErrDuplicateReference) {
			return ErrDuplicateReference
		}
		return errors.Wrap(err, "append entry")
	}
	if err := tx.AddCustomerBalance(ctx, m.CustomerID, delta); err != nil {
		return errors.Wrap(err, "update balance")
	}
	return nil
}
