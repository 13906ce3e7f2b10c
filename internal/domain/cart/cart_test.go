package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/drinkhub/internal/domain/product"
)

func key(productID int64, size string) Key {
	return Key{ProductID: productID, Customization: Customization{Sugar: "normal", Ice: "less", Size: size}}
}

func TestCart_Add(t *testing.T) {
	var c Cart
	require.NoError(t, c.Add(1, key(10, "M"), 1))
	require.NoError(t, c.Add(1, key(10, "M"), 2))
	require.NoError(t, c.Add(1, key(10, "L"), 1))

	require.Len(t, c.Items, 2)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, "L", c.Items[1].Size)
	assert.Equal(t, int64(1), c.VendorID)

	require.ErrorIs(t, c.Add(1, key(10, "M"), 0), ErrInvalidQuantity)
}

func TestCart_AddOtherVendorClears(t *testing.T) {
	c := Cart{VendorID: 1, Items: []Item{{Key: key(10, "M"), Quantity: 4}}}
	require.NoError(t, c.Add(2, key(20, "M"), 1))

	assert.Equal(t, int64(2), c.VendorID)
	require.Len(t, c.Items, 1)
	assert.Equal(t, int64(20), c.Items[0].ProductID)
}

func TestCart_SetQuantity(t *testing.T) {
	c := Cart{VendorID: 1, Items: []Item{
		{Key: key(10, "M"), Quantity: 4},
		{Key: key(11, "M"), Quantity: 1},
	}}

	require.NoError(t, c.SetQuantity(key(10, "M"), 7))
	assert.Equal(t, 7, c.Items[0].Quantity)

	require.NoError(t, c.SetQuantity(key(10, "M"), 0))
	require.Len(t, c.Items, 1)
	assert.Equal(t, int64(11), c.Items[0].ProductID)

	require.ErrorIs(t, c.SetQuantity(key(99, "M"), 1), ErrItemNotFound)
	require.ErrorIs(t, c.Remove(key(10, "M")), ErrItemNotFound)

	c.Clear()
	assert.True(t, c.Empty())
	assert.Zero(t, c.VendorID)
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name       string
		persisted  Cart
		guest      Cart
		wantVendor int64
		wantItems  []Item
	}{
		{
			name:       "empty guest keeps persisted",
			persisted:  Cart{CustomerID: 5, VendorID: 1, Items: []Item{{Key: key(10, "M"), Quantity: 1}}},
			guest:      Cart{VendorID: 2},
			wantVendor: 1,
			wantItems:  []Item{{Key: key(10, "M"), Quantity: 1}},
		},
		{
			name:       "same vendor increments",
			persisted:  Cart{CustomerID: 5, VendorID: 1, Items: []Item{{Key: key(10, "M"), Quantity: 1}}},
			guest:      Cart{VendorID: 1, Items: []Item{{Key: key(10, "M"), Quantity: 2}, {Key: key(11, "L"), Quantity: 1}}},
			wantVendor: 1,
			wantItems:  []Item{{Key: key(10, "M"), Quantity: 3}, {Key: key(11, "L"), Quantity: 1}},
		},
		{
			name:       "other vendor replaces",
			persisted:  Cart{CustomerID: 5, VendorID: 1, Items: []Item{{Key: key(10, "M"), Quantity: 1}}},
			guest:      Cart{VendorID: 2, Items: []Item{{Key: key(20, "M"), Quantity: 2}}},
			wantVendor: 2,
			wantItems:  []Item{{Key: key(20, "M"), Quantity: 2}},
		},
		{
			name:       "empty persisted takes guest",
			persisted:  Cart{CustomerID: 5},
			guest:      Cart{VendorID: 3, Items: []Item{{Key: key(30, "S"), Quantity: 1}}},
			wantVendor: 3,
			wantItems:  []Item{{Key: key(30, "S"), Quantity: 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(tt.persisted.Items)
			got, err := Merge(tt.persisted, tt.guest)
			require.NoError(t, err)

			assert.Equal(t, int64(5), got.CustomerID)
			assert.Equal(t, tt.wantVendor, got.VendorID)
			assert.Equal(t, tt.wantItems, got.Items)
			assert.Len(t, tt.persisted.Items, before)
		})
	}
}

// --- Service ---

type memRepo struct {
	carts map[int64]*Cart
}

func newMemRepo() *memRepo { return &memRepo{carts: map[int64]*Cart{}} }

func (m *memRepo) Get(_ context.Context, customerID int64) (*Cart, error) {
	if c, ok := m.carts[customerID]; ok {
		cp := *c
		return &cp, nil
	}
	return &Cart{CustomerID: customerID}, nil
}

func (m *memRepo) Mutate(ctx context.Context, customerID int64, fn func(c *Cart) error) (*Cart, error) {
	c, _ := m.Get(ctx, customerID)
	c.Items = append([]Item(nil), c.Items...)
	if err := fn(c); err != nil {
		return nil, err
	}
	if c.Empty() {
		delete(m.carts, customerID)
	} else {
		m.carts[customerID] = c
	}
	return c, nil
}

type mockCatalog struct {
	products []product.Product
}

func (m *mockCatalog) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.products {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	catalog := &mockCatalog{products: []product.Product{
		{ID: 10, VendorID: 1, Price: 50},
		{ID: 11, VendorID: 1, Price: 40},
		{ID: 20, VendorID: 2, Price: 30},
	}}
	return NewService(repo, catalog), repo
}

func TestService_AddItem(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService()

	c, err := svc.AddItem(ctx, 5, 1, key(10, "M"), 2)
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)

	_, err = svc.AddItem(ctx, 5, 1, key(20, "M"), 1)
	require.ErrorIs(t, err, ErrProductVendorMismatch)

	_, err = svc.AddItem(ctx, 5, 1, key(404, "M"), 1)
	var nf *product.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(404), nf.ProductID)

	_, err = svc.AddItem(ctx, 5, 1, key(10, "M"), -1)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	assert.Equal(t, 2, repo.carts[5].Items[0].Quantity)
}

func TestService_UpdateRemoveClear(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService()

	_, err := svc.AddItem(ctx, 5, 1, key(10, "M"), 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 5, 1, key(11, "M"), 1)
	require.NoError(t, err)

	c, err := svc.UpdateItem(ctx, 5, key(10, "M"), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Items[0].Quantity)

	c, err = svc.RemoveItem(ctx, 5, key(11, "M"))
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)

	_, err = svc.RemoveItem(ctx, 5, key(11, "M"))
	require.ErrorIs(t, err, ErrItemNotFound)

	require.NoError(t, svc.Clear(ctx, 5))
	assert.NotContains(t, repo.carts, int64(5))
}

func TestMerge_InvalidGuestQuantity(t *testing.T) {
	persisted := Cart{CustomerID: 5, VendorID: 1, Items: []Item{{Key: key(10, "M"), Quantity: 1}}}
	guest := Cart{VendorID: 2, Items: []Item{{Key: key(20, "M"), Quantity: 2}, {Key: key(21, "S"), Quantity: 0}}}

	got, err := Merge(persisted, guest)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, persisted, got)
	assert.Equal(t, []Item{{Key: key(10, "M"), Quantity: 1}}, persisted.Items)
}

func TestService_MergeGuest(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.AddItem(ctx, 5, 1, key(10, "M"), 1)
	require.NoError(t, err)

	c, err := svc.MergeGuest(ctx, 5, Cart{VendorID: 2, Items: []Item{{Key: key(20, "L"), Quantity: 3}}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.VendorID)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)

	_, err = svc.MergeGuest(ctx, 5, Cart{VendorID: 2, Items: []Item{{Key: key(10, "L"), Quantity: 1}}})
	require.ErrorIs(t, err, ErrProductVendorMismatch)
}
