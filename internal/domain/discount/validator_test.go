package discount

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/drinkhub/internal/domain/user"
)

type mockTx struct {
	policy    *Policy
	policyErr error
	customer  *user.Customer
	used      bool
	usedErr   error
}

func (m *mockTx) GetPolicy(_ context.Context, _ int64) (*Policy, error) {
	if m.policyErr != nil {
		return nil, m.policyErr
	}
	if m.policy == nil {
		return nil, ErrPolicyNotFound
	}
	return m.policy, nil
}

func (m *mockTx) GetCustomer(_ context.Context, _ int64) (*user.Customer, error) {
	if m.customer == nil {
		return nil, user.ErrCustomerNotFound
	}
	return m.customer, nil
}

func (m *mockTx) PolicyUsed(_ context.Context, _, _ int64) (bool, error) {
	return m.used, m.usedErr
}

func ptr[T any](v T) *T { return &v }

func TestPolicy_Amount(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		gross  int64
		want   int64
	}{
		{name: "percentage", policy: Policy{Kind: KindPercentage, Value: decimal.NewFromInt(20)}, gross: 120, want: 24},
		{name: "percentage floors", policy: Policy{Kind: KindPercentage, Value: decimal.NewFromInt(15)}, gross: 99, want: 14},
		{name: "fractional percentage", policy: Policy{Kind: KindPercentage, Value: decimal.RequireFromString("12.5")}, gross: 101, want: 12},
		{name: "percentage capped", policy: Policy{Kind: KindPercentage, Value: decimal.NewFromInt(50), MaxDiscount: ptr[int64](30)}, gross: 100, want: 30},
		{name: "fixed", policy: Policy{Kind: KindFixed, Value: decimal.NewFromInt(15)}, gross: 100, want: 15},
		{name: "fixed fractional floors", policy: Policy{Kind: KindFixed, Value: decimal.RequireFromString("15.9")}, gross: 100, want: 15},
		{name: "fixed capped", policy: Policy{Kind: KindFixed, Value: decimal.NewFromInt(40), MaxDiscount: ptr[int64](25)}, gross: 100, want: 25},
		{name: "fixed above gross", policy: Policy{Kind: KindFixed, Value: decimal.NewFromInt(500)}, gross: 100, want: 500},
		{name: "unknown kind", policy: Policy{Kind: "bogus", Value: decimal.NewFromInt(10)}, gross: 100, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Amount(tt.gross))
		})
	}
}

func TestApply(t *testing.T) {
	r := Apply(100, 500)
	assert.Equal(t, int64(0), r.Final)
	assert.Equal(t, int64(100), r.Discount)
	assert.Equal(t, r.Gross, r.Final+r.Discount)

	r = Apply(120, 24)
	assert.Equal(t, int64(96), r.Final)
	assert.Equal(t, int64(24), r.Discount)
}

func TestValidator_Validate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := fixedNow.Add(-24 * time.Hour)
	future := fixedNow.Add(24 * time.Hour)

	base := func() *Policy {
		return &Policy{
			ID:                 7,
			VendorID:           1,
			Kind:               KindPercentage,
			Value:              decimal.NewFromInt(20),
			MinPurchase:        50,
			MinMembershipLevel: 1,
			Available:          true,
			StartsAt:           &past,
			ExpiresAt:          &future,
		}
	}
	member := &user.Customer{MembershipLevel: 2, StoredBalance: 100}

	tests := []struct {
		name     string
		tx       *mockTx
		gross    int64
		policyID *int64
		want     Result
		wantErr  error
	}{
		{
			name:  "no policy",
			tx:    &mockTx{},
			gross: 120,
			want:  Result{Gross: 120, Final: 120},
		},
		{
			name:     "valid percentage",
			tx:       &mockTx{policy: base(), customer: member},
			gross:    120,
			policyID: ptr[int64](7),
			want:     Result{PolicyID: ptr[int64](7), Gross: 120, Discount: 24, Final: 96},
		},
		{
			name:     "policy missing",
			tx:       &mockTx{customer: member},
			gross:    120,
			policyID: ptr[int64](7),
			wantErr:  ErrPolicyNotFound,
		},
		{
			name: "policy of other vendor",
			tx: &mockTx{policy: func() *Policy {
				p := base()
				p.VendorID = 2
				return p
			}(), customer: member},
			gross:    120,
			policyID: ptr[int64](7),
			wantErr:  ErrPolicyNotFound,
		},
		{
			name:     "customer missing",
			tx:       &mockTx{policy: base()},
			gross:    120,
			policyID: ptr[int64](7),
			wantErr:  user.ErrCustomerNotFound,
		},
		{
			name: "disabled",
			tx: &mockTx{policy: func() *Policy {
				p := base()
				p.Available = false
				p.ExpiresAt = &past
				return p
			}(), customer: member},
			gross:    120,
			policyID: ptr[int64](7),
			wantErr:  ErrPolicyDisabled,
		},
		{
			name: "not yet active",
			tx: &mockTx{policy: func() *Policy {
				p := base()
				p.StartsAt = &future
				return p
			}(), customer: member},
			gross:    120,
			policyID: ptr[int64](7),
			wantErr:  ErrPolicyNotYetActive,
		},
		{
			name: "expired",
			tx: &mockTx{policy: func() *Policy {
				p := base()
				p.ExpiresAt = &past
				return p
			}(), customer: member},
			gross:    120,
			policyID: ptr[int64](7),
			wantErr:  ErrPolicyExpired,
		},
		{
			name:     "membership too low",
			tx:       &mockTx{policy: base(), customer: &user.Customer{MembershipLevel: 0}},
			gross:    10,
			policyID: ptr[int64](7),
			wantErr:  ErrMembershipInsufficient,
		},
		{
			name:     "below minimum purchase",
			tx:       &mockTx{policy: base(), customer: member},
			gross:    49,
			policyID: ptr[int64](7),
			wantErr:  ErrMinimumPurchaseNotMet,
		},
		{
			name:     "already used",
			tx:       &mockTx{policy: base(), customer: member, used: true},
			gross:    120,
			policyID: ptr[int64](7),
			wantErr:  ErrPolicyAlreadyUsed,
		},
		{
			name: "open-ended window",
			tx: &mockTx{policy: func() *Policy {
				p := base()
				p.StartsAt, p.ExpiresAt = nil, nil
				p.Kind, p.Value = KindFixed, decimal.NewFromInt(500)
				return p
			}(), customer: member},
			gross:    120,
			policyID: ptr[int64](7),
			want:     Result{PolicyID: ptr[int64](7), Gross: 120, Discount: 120, Final: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.now = func() time.Time { return fixedNow }

			got, err := v.Validate(context.Background(), tt.tx, Input{
				Gross:      tt.gross,
				PolicyID:   tt.policyID,
				CustomerID: 3,
				VendorID:   1,
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidator_StorageError(t *testing.T) {
	dbErr := errors.New("connection refused")
	v := NewValidator()

	_, err := v.Validate(context.Background(), &mockTx{policyErr: dbErr}, Input{Gross: 10, PolicyID: ptr[int64](1)})
	require.ErrorIs(t, err, dbErr)

	_, err = v.Validate(context.Background(), &mockTx{
		policy:   &Policy{ID: 1, Available: true},
		customer: &user.Customer{},
		usedErr:  dbErr,
	}, Input{Gross: 10, PolicyID: ptr[int64](1)})
	require.ErrorIs(t, err, dbErr)
}
