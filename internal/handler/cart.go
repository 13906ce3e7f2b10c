package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/drinkhub/internal/domain/cart"
)

// cartLine is the wire form of a cart line item. VendorID is only read by
// the add route.
type cartLine struct {
	VendorID int64
	Key      cart.Key
	Quantity int
}

func (l *cartLine) decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "vendor_id":
			l.VendorID, err = d.Int64()
		case "product_id":
			l.Key.ProductID, err = d.Int64()
		case "selected_sugar":
			l.Key.Sugar, err = optStr(d)
		case "selected_ice":
			l.Key.Ice, err = optStr(d)
		case "selected_size":
			l.Key.Size, err = optStr(d)
		case "quantity":
			l.Quantity, err = d.Int()
		default:
			return d.Skip()
		}
		return err
	})
}

// GetCart returns the customer's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r, "customer_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.carts.Get(r.Context(), customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, "cart found", c)
}

// ClearCart removes every item from the customer's cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r, "customer_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.carts.Clear(r.Context(), customerID); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "cart cleared", nil)
}

// AddCartItem adds a line or increments an existing one.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, "item added", func(customerID int64, l cartLine) (*cart.Cart, error) {
		return h.carts.AddItem(r.Context(), customerID, l.VendorID, l.Key, l.Quantity)
	})
}

// UpdateCartItem sets the quantity of a line; zero or less removes it.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, "item updated", func(customerID int64, l cartLine) (*cart.Cart, error) {
		return h.carts.UpdateItem(r.Context(), customerID, l.Key, l.Quantity)
	})
}

// RemoveCartItem removes a line.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, "item removed", func(customerID int64, l cartLine) (*cart.Cart, error) {
		return h.carts.RemoveItem(r.Context(), customerID, l.Key)
	})
}

func (h *Handler) mutateLine(w http.ResponseWriter, r *http.Request, msg string, fn func(int64, cartLine) (*cart.Cart, error)) {
	customerID, err := pathID(r, "customer_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var l cartLine
	if err := decodeBody(r, w, l.decode); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := fn(customerID, l)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, msg, c)
}

// MergeCart folds a guest cart into the customer's persisted cart.
func (h *Handler) MergeCart(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r, "customer_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	guest := cart.Cart{CustomerID: customerID}
	err = decodeBody(r, w, func(d *jx.Decoder) error {
		return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			switch string(key) {
			case "vendor_id":
				id, err := d.Int64()
				guest.VendorID = id
				return err
			case "items":
				return d.Arr(func(d *jx.Decoder) error {
					var l cartLine
					if err := l.decode(d); err != nil {
						return err
					}
					if l.Quantity <= 0 {
						return cart.ErrInvalidQuantity
					}
					guest.Items = append(guest.Items, cart.Item{Key: l.Key, Quantity: l.Quantity})
					return nil
				})
			default:
				return d.Skip()
			}
		})
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.carts.MergeGuest(r.Context(), customerID, guest)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, "cart merged", c)
}

func writeCart(w http.ResponseWriter, msg string, c *cart.Cart) {
	writeOK(w, http.StatusOK, msg, func(e *jx.Encoder) {
		e.Field("cart", func(e *jx.Encoder) {
			e.ObjStart()
			e.Field("customer_id", func(e *jx.Encoder) { e.Int64(c.CustomerID) })
			e.Field("vendor_id", func(e *jx.Encoder) { e.Int64(c.VendorID) })
			e.Field("items", func(e *jx.Encoder) {
				e.ArrStart()
				for _, it := range c.Items {
					e.ObjStart()
					e.Field("product_id", func(e *jx.Encoder) { e.Int64(it.ProductID) })
					e.Field("selected_sugar", func(e *jx.Encoder) { e.Str(it.Sugar) })
					e.Field("selected_ice", func(e *jx.Encoder) { e.Str(it.Ice) })
					e.Field("selected_size", func(e *jx.Encoder) { e.Str(it.Size) })
					e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
					e.ObjEnd()
				}
				e.ArrEnd()
			})
			e.ObjEnd()
		})
	})
}
