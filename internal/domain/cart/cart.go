// Package cart models a customer's single-vendor basket of customized drinks.
package cart

import (
	"github.com/xenking/drinkhub/internal/domain/fault"
)

var (
	// ErrEmpty is returned when checkout finds no cart or a cart without items.
	ErrEmpty = fault.New(fault.BusinessRule, "cart_empty", "cart is empty")
	// ErrVendorMismatch is returned when a checkout targets a vendor other than
	// the one the cart was filled from.
	ErrVendorMismatch = fault.New(fault.Validation, "cart_vendor_mismatch", "cart belongs to a different vendor")
	// ErrItemNotFound is returned when an item key is not present in the cart.
	ErrItemNotFound = fault.New(fault.NotFound, "cart_item_not_found", "cart item not found")
	// ErrInvalidQuantity is returned for non-positive add quantities.
	ErrInvalidQuantity = fault.New(fault.Validation, "invalid_quantity", "quantity must be greater than 0")
	// ErrProductVendorMismatch is returned when a product is added under a
	// vendor that does not sell it.
	ErrProductVendorMismatch = fault.New(fault.Validation, "product_vendor_mismatch", "product is not sold by this vendor")
)

// Customization is the sugar, ice and size selection of a drink.
type Customization struct {
	Sugar string
	Ice   string
	Size  string
}

// Key identifies a line item: the same product with a different
// customization is a separate line.
type Key struct {
	ProductID int64
	Customization
}

// Item is a line in the cart.
type Item struct {
	Key
	Quantity int
}

// Cart belongs to exactly one customer and targets exactly one vendor.
type Cart struct {
	CustomerID int64
	VendorID   int64
	Items      []Item
}

// Empty reports whether the cart has no items.
func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}

func (c *Cart) index(k Key) int {
	for i, it := range c.Items {
		if it.Key == k {
			return i
		}
	}
	return -1
}

// Add puts quantity of the keyed item into the cart. Adding for a different
// vendor than the current one discards the existing items first.
func (c *Cart) Add(vendorID int64, k Key, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if c.VendorID != vendorID {
		c.Items = nil
		c.VendorID = vendorID
	}
	if i := c.index(k); i >= 0 {
		c.Items[i].Quantity += quantity
		return nil
	}
	c.Items = append(c.Items, Item{Key: k, Quantity: quantity})
	return nil
}

// SetQuantity overwrites the quantity of an existing line. A non-positive
// quantity removes it.
func (c *Cart) SetQuantity(k Key, quantity int) error {
	i := c.index(k)
	if i < 0 {
		return ErrItemNotFound
	}
	if quantity <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return nil
	}
	c.Items[i].Quantity = quantity
	return nil
}

// Remove deletes a line.
func (c *Cart) Remove(k Key) error {
	return c.SetQuantity(k, 0)
}

// Clear drops every item and the vendor binding.
func (c *Cart) Clear() {
	c.Items = nil
	c.VendorID = 0
}

// Merge folds a guest cart into the persisted one and returns the result,
// owned by the persisted cart's customer. When the two target different
// vendors the guest cart wins. A guest line with a non-positive quantity
// fails the whole merge and leaves persisted untouched.
func Merge(persisted, guest Cart) (Cart, error) {
	out := Cart{
		CustomerID: persisted.CustomerID,
		VendorID:   persisted.VendorID,
		Items:      append([]Item(nil), persisted.Items...),
	}
	if guest.Empty() {
		return out, nil
	}
	if out.Empty() {
		out.VendorID = guest.VendorID
	}
	for _, it := range guest.Items {
		// Add clears on vendor switch, so the first guest item resets a
		// mismatching persisted cart.
		if err := out.Add(guest.VendorID, it.Key, it.Quantity); err != nil {
			return persisted, err
		}
	}
	return out, nil
}
