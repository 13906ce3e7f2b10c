package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/drinkhub/internal/domain/product"
)

// Repository persists carts. Mutate loads the customer's cart under a row
// lock (an empty cart when none exists), applies fn and stores the result in
// the same transaction; a cart left without items is deleted.
type Repository interface {
	Get(ctx context.Context, customerID int64) (*Cart, error)
	Mutate(ctx context.Context, customerID int64, fn func(c *Cart) error) (*Cart, error)
}

// Catalog resolves products for cart validation.
type Catalog interface {
	GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error)
}

// Service implements cart editing on top of a Repository.
type Service struct {
	repo    Repository
	catalog Catalog
}

// NewService creates a cart Service.
func NewService(repo Repository, catalog Catalog) *Service {
	return &Service{repo: repo, catalog: catalog}
}

// Get returns the customer's cart; a customer without one gets an empty cart.
func (s *Service) Get(ctx context.Context, customerID int64) (*Cart, error) {
	c, err := s.repo.Get(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	return c, nil
}

// AddItem adds quantity of a customized product sold by vendorID.
func (s *Service) AddItem(ctx context.Context, customerID, vendorID int64, k Key, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if err := s.checkProducts(ctx, vendorID, []Key{k}); err != nil {
		return nil, err
	}
	c, err := s.repo.Mutate(ctx, customerID, func(c *Cart) error {
		return c.Add(vendorID, k, quantity)
	})
	if err != nil {
		return nil, errors.Wrap(err, "add cart item")
	}
	return c, nil
}

// UpdateItem sets the quantity of an existing line; zero or less removes it.
func (s *Service) UpdateItem(ctx context.Context, customerID int64, k Key, quantity int) (*Cart, error) {
	c, err := s.repo.Mutate(ctx, customerID, func(c *Cart) error {
		return c.SetQuantity(k, quantity)
	})
	if err != nil {
		return nil, errors.Wrap(err, "update cart item")
	}
	return c, nil
}

// RemoveItem deletes a line.
func (s *Service) RemoveItem(ctx context.Context, customerID int64, k Key) (*Cart, error) {
	c, err := s.repo.Mutate(ctx, customerID, func(c *Cart) error {
		return c.Remove(k)
	})
	if err != nil {
		return nil, errors.Wrap(err, "remove cart item")
	}
	return c, nil
}

// Clear empties the customer's cart.
func (s *Service) Clear(ctx context.Context, customerID int64) error {
	if _, err := s.repo.Mutate(ctx, customerID, func(c *Cart) error {
		c.Clear()
		return nil
	}); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

// MergeGuest folds a cart built before sign-in into the customer's cart.
func (s *Service) MergeGuest(ctx context.Context, customerID int64, guest Cart) (*Cart, error) {
	if guest.Empty() {
		return s.Get(ctx, customerID)
	}
	keys := make([]Key, 0, len(guest.Items))
	for _, it := range guest.Items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		keys = append(keys, it.Key)
	}
	if err := s.checkProducts(ctx, guest.VendorID, keys); err != nil {
		return nil, err
	}
	c, err := s.repo.Mutate(ctx, customerID, func(c *Cart) error {
		merged, err := Merge(*c, guest)
		if err != nil {
			return err
		}
		*c = merged
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "merge guest cart")
	}
	return c, nil
}

// checkProducts verifies every key references an existing product of vendorID.
func (s *Service) checkProducts(ctx context.Context, vendorID int64, keys []Key) error {
	ids := make([]int64, len(keys))
	for i, k := range keys {
		ids[i] = k.ProductID
	}
	products, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "get products")
	}
	byID := make(map[int64]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return &product.NotFoundError{ProductID: id}
		}
		if p.VendorID != vendorID {
			return ErrProductVendorMismatch
		}
	}
	return nil
}
