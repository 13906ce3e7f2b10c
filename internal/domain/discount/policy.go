// Package discount validates vendor discount policies and computes the amount
// they take off an order.
package discount

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/drinkhub/internal/domain/fault"
)

// Kind enumerates the supported discount strategies.
type Kind string

const (
	// KindPercentage takes value percent of the gross total, rounded down.
	KindPercentage Kind = "percentage"
	// KindFixed takes a flat amount.
	KindFixed Kind = "fixed"
)

var (
	ErrPolicyNotFound         = fault.New(fault.NotFound, "policy_not_found", "discount policy not found")
	ErrPolicyDisabled         = fault.New(fault.BusinessRule, "policy_disabled", "discount policy is not available")
	ErrPolicyNotYetActive     = fault.New(fault.BusinessRule, "policy_not_yet_active", "discount policy is not active yet")
	ErrPolicyExpired          = fault.New(fault.BusinessRule, "policy_expired", "discount policy has expired")
	ErrMembershipInsufficient = fault.New(fault.BusinessRule, "membership_insufficient", "membership level too low for this discount policy")
	ErrMinimumPurchaseNotMet  = fault.New(fault.BusinessRule, "minimum_purchase_not_met", "order total is below the policy minimum purchase")
	ErrPolicyAlreadyUsed      = fault.New(fault.BusinessRule, "policy_already_used", "discount policy has already been used")
	// ErrPolicyConsumed is returned when a concurrent checkout used the same
	// policy first.
	ErrPolicyConsumed = fault.New(fault.Conflict, "policy_consumed", "discount policy was used by a concurrent order")
)

// Policy is a vendor-defined discount rule.
type Policy struct {
	ID                 int64
	VendorID           int64
	Kind               Kind
	Value              decimal.Decimal
	MinPurchase        int64
	MaxDiscount        *int64
	MinMembershipLevel int
	Available          bool
	StartsAt           *time.Time
	ExpiresAt          *time.Time
	Description        string
}

// Amount computes the raw discount for gross, after applying the cap.
func (p Policy) Amount(gross int64) int64 {
	var d int64
	switch p.Kind {
	case KindPercentage:
		d = decimal.NewFromInt(gross).Mul(p.Value).Div(decimal.NewFromInt(100)).Floor().IntPart()
	case KindFixed:
		d = p.Value.Floor().IntPart()
	}
	if d < 0 {
		d = 0
	}
	if p.MaxDiscount != nil && d > *p.MaxDiscount {
		d = *p.MaxDiscount
	}
	return d
}

// Result is the priced outcome of applying at most one policy.
type Result struct {
	PolicyID *int64
	Gross    int64
	Discount int64
	Final    int64
}

// Apply subtracts discount from gross, floored at zero. The applied discount
// is whatever was actually taken off.
func Apply(gross, discount int64) Result {
	final := gross - discount
	if final < 0 {
		final = 0
	}
	return Result{Gross: gross, Discount: gross - final, Final: final}
}
