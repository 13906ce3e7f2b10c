package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/drinkhub/internal/domain/user"
)

// Tx is the transactional view the validator reads through.
type Tx interface {
	// GetPolicy returns ErrPolicyNotFound for unknown ids.
	GetPolicy(ctx context.Context, id int64) (*Policy, error)
	// GetCustomer returns user.ErrCustomerNotFound for unknown ids.
	GetCustomer(ctx context.Context, id int64) (*user.Customer, error)
	// PolicyUsed reports whether the customer holds a non-refunded order
	// that applied the policy.
	PolicyUsed(ctx context.Context, customerID, policyID int64) (bool, error)
}

// Input describes the order being priced.
type Input struct {
	Gross      int64
	PolicyID   *int64
	CustomerID int64
	VendorID   int64
}

// Validator checks policy eligibility and prices the discount.
type Validator struct {
	now func() time.Time
}

// NewValidator creates a Validator using the wall clock.
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// Validate checks the policy in a fixed order and stops at the first
// failure. Without a policy the gross total passes through unchanged.
func (v *Validator) Validate(ctx context.Context, tx Tx, in Input) (Result, error) {
	if in.PolicyID == nil {
		return Apply(in.Gross, 0), nil
	}

	policy, err := tx.GetPolicy(ctx, *in.PolicyID)
	if err != nil {
		if errors.Is(err, ErrPolicyNotFound) {
			return Result{}, ErrPolicyNotFound
		}
		return Result{}, errors.Wrap(err, "get policy")
	}
	// A policy of another vendor is invisible to this order.
	if in.VendorID != 0 && policy.VendorID != in.VendorID {
		return Result{}, ErrPolicyNotFound
	}

	customer, err := tx.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		if errors.Is(err, user.ErrCustomerNotFound) {
			return Result{}, user.ErrCustomerNotFound
		}
		return Result{}, errors.Wrap(err, "get customer")
	}

	if !policy.Available {
		return Result{}, ErrPolicyDisabled
	}

	now := v.now()
	if policy.StartsAt != nil && now.Before(*policy.StartsAt) {
		return Result{}, ErrPolicyNotYetActive
	}
	if policy.ExpiresAt != nil && now.After(*policy.ExpiresAt) {
		return Result{}, ErrPolicyExpired
	}

	if customer.MembershipLevel < policy.MinMembershipLevel {
		return Result{}, ErrMembershipInsufficient
	}
	if in.Gross < policy.MinPurchase {
		return Result{}, ErrMinimumPurchaseNotMet
	}

	used, err := tx.PolicyUsed(ctx, in.CustomerID, policy.ID)
	if err != nil {
		return Result{}, errors.Wrap(err, "check policy usage")
	}
	if used {
		return Result{}, ErrPolicyAlreadyUsed
	}

	res := Apply(in.Gross, policy.Amount(in.Gross))
	res.PolicyID = &policy.ID
	return res, nil
}
