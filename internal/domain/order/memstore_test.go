package order

import (
	"context"
	"sync"

	"github.com/xenking/drinkhub/internal/domain/cart"
	"github.com/xenking/drinkhub/internal/domain/discount"
	"github.com/xenking/drinkhub/internal/domain/ledger"
	"github.com/xenking/drinkhub/internal/domain/product"
	"github.com/xenking/drinkhub/internal/domain/user"
)

// memState is the data held by memStore. It is deep-copied for rollback.
type memState struct {
	vendors   map[int64]user.Vendor
	customers map[int64]user.Customer
	policies  map[int64]discount.Policy
	products  map[int64]product.Product
	carts     map[int64]cart.Cart
	orders    map[string]Order
	entries   []ledger.Entry
	events    []Event
}

func (s memState) clone() memState {
	out := memState{
		vendors:   make(map[int64]user.Vendor, len(s.vendors)),
		customers: make(map[int64]user.Customer, len(s.customers)),
		policies:  make(map[int64]discount.Policy, len(s.policies)),
		products:  make(map[int64]product.Product, len(s.products)),
		carts:     make(map[int64]cart.Cart, len(s.carts)),
		orders:    make(map[string]Order, len(s.orders)),
		entries:   append([]ledger.Entry(nil), s.entries...),
		events:    append([]Event(nil), s.events...),
	}
	for k, v := range s.vendors {
		out.vendors[k] = v
	}
	for k, v := range s.customers {
		out.customers[k] = v
	}
	for k, v := range s.policies {
		out.policies[k] = v
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.carts {
		v.Items = append([]cart.Item(nil), v.Items...)
		out.carts[k] = v
	}
	for k, v := range s.orders {
		v.Items = append([]LineItem(nil), v.Items...)
		out.orders[k] = v
	}
	return out
}

// memStore is an in-memory Store with transactional rollback. Transactions
// are fully serialized.
type memStore struct {
	mu sync.Mutex
	memState

	// skipUsageCheck makes PolicyUsed always report false, emulating a
	// concurrent checkout that passed validation before this one committed.
	skipUsageCheck bool
	viewReads      int
}

func newMemStore() *memStore {
	return &memStore{memState: memState{
		vendors:   map[int64]user.Vendor{},
		customers: map[int64]user.Customer{},
		policies:  map[int64]discount.Policy{},
		products:  map[int64]product.Product{},
		carts:     map[int64]cart.Cart{},
		orders:    map[string]Order{},
	}}
}

var _ Store = (*memStore)(nil)

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.memState.clone()
	if err := fn(ctx, &memTx{s: &m.memState, skipUsage: m.skipUsageCheck}); err != nil {
		m.memState = snapshot
		return err
	}
	return nil
}

func (m *memStore) GetView(_ context.Context, id string) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewReads++

	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	v := &View{
		ID:             o.ID,
		CustomerID:     o.CustomerID,
		VendorID:       o.VendorID,
		DiscountAmount: o.DiscountAmount,
		Note:           o.Note,
		PaymentMethod:  o.PaymentMethod,
		RefundStatus:   o.RefundStatus,
		RefundAt:       o.RefundAt,
		IsCompleted:    o.IsCompleted,
		IsDelivered:    o.IsDelivered,
		TotalPrice:     o.TotalPrice,
		Address:        o.Address,
		DeliverStatus:  o.DeliverStatus,
		Version:        o.Version,
	}
	for _, it := range o.Items {
		p := m.products[it.ProductID]
		v.Items = append(v.Items, ViewItem{
			ProductID:    it.ProductID,
			ProductName:  p.Name,
			ProductImage: p.Image,
			Price:        it.UnitPrice,
			Quantity:     it.Quantity,
			Subtotal:     it.UnitPrice * int64(it.Quantity),
			Sugar:        it.Sugar,
			Ice:          it.Ice,
			Size:         it.Size,
		})
	}
	return v, nil
}

type memTx struct {
	s         *memState
	skipUsage bool
}

var _ Tx = (*memTx)(nil)

func (t *memTx) GetPolicy(_ context.Context, id int64) (*discount.Policy, error) {
	p, ok := t.s.policies[id]
	if !ok {
		return nil, discount.ErrPolicyNotFound
	}
	return &p, nil
}

func (t *memTx) GetCustomer(_ context.Context, id int64) (*user.Customer, error) {
	c, ok := t.s.customers[id]
	if !ok {
		return nil, user.ErrCustomerNotFound
	}
	return &c, nil
}

func (t *memTx) usedBy(customerID, policyID int64) bool {
	for _, o := range t.s.orders {
		if o.CustomerID == customerID && o.PolicyID != nil && *o.PolicyID == policyID && o.RefundStatus != RefundRefunded {
			return true
		}
	}
	return false
}

func (t *memTx) PolicyUsed(_ context.Context, customerID, policyID int64) (bool, error) {
	if t.skipUsage {
		return false, nil
	}
	return t.usedBy(customerID, policyID), nil
}

func (t *memTx) LockCustomerBalance(_ context.Context, id int64) (int64, error) {
	c, ok := t.s.customers[id]
	if !ok {
		return 0, user.ErrCustomerNotFound
	}
	return c.StoredBalance, nil
}

func (t *memTx) AddCustomerBalance(_ context.Context, id, delta int64) error {
	c, ok := t.s.customers[id]
	if !ok {
		return user.ErrCustomerNotFound
	}
	c.StoredBalance += delta
	if c.StoredBalance < 0 {
		return ledger.ErrInsufficientBalance
	}
	t.s.customers[id] = c
	return nil
}

func (t *memTx) AppendEntry(_ context.Context, e ledger.Entry) error {
	for _, prev := range t.s.entries {
		if e.Reference != "" && prev.Reference == e.Reference {
			return ledger.ErrDuplicateReference
		}
	}
	e.ID = int64(len(t.s.entries) + 1)
	t.s.entries = append(t.s.entries, e)
	return nil
}

func (t *memTx) AddVendorRevenue(_ context.Context, id, delta int64) error {
	v, ok := t.s.vendors[id]
	if !ok {
		return user.ErrVendorNotFound
	}
	v.Revenue += delta
	t.s.vendors[id] = v
	return nil
}

func (t *memTx) GetVendor(_ context.Context, id int64) (*user.Vendor, error) {
	v, ok := t.s.vendors[id]
	if !ok {
		return nil, user.ErrVendorNotFound
	}
	return &v, nil
}

func (t *memTx) LockCart(_ context.Context, customerID int64) (*cart.Cart, error) {
	c, ok := t.s.carts[customerID]
	if !ok {
		return nil, cart.ErrEmpty
	}
	c.Items = append([]cart.Item(nil), c.Items...)
	return &c, nil
}

func (t *memTx) DeleteCart(_ context.Context, customerID int64) error {
	delete(t.s.carts, customerID)
	return nil
}

func (t *memTx) GetProducts(_ context.Context, ids []int64) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := t.s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *memTx) CreateOrder(_ context.Context, o *Order) error {
	if o.PolicyID != nil && t.usedBy(o.CustomerID, *o.PolicyID) {
		return discount.ErrPolicyConsumed
	}
	cp := *o
	cp.Items = append([]LineItem(nil), o.Items...)
	t.s.orders[o.ID] = cp
	return nil
}

func (t *memTx) LockOrder(_ context.Context, id string) (*Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (t *memTx) UpdateOrderState(_ context.Context, o *Order) error {
	prev, ok := t.s.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	prev.RefundStatus = o.RefundStatus
	prev.RefundAt = o.RefundAt
	prev.IsCompleted = o.IsCompleted
	prev.IsDelivered = o.IsDelivered
	prev.DeliverStatus = o.DeliverStatus
	prev.Version = o.Version
	t.s.orders[o.ID] = prev
	return nil
}

func (t *memTx) AppendEvent(_ context.Context, e Event) error {
	t.s.events = append(t.s.events, e)
	return nil
}
