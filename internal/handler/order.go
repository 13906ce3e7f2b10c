package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/drinkhub/internal/domain/order"
)

const (
	headerUserID   = "X-User-ID"
	headerVendorID = "X-Vendor-ID"
)

// Checkout finalizes the customer's cart into an order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req order.CheckoutRequest
	if err := decodeBody(r, w, func(d *jx.Decoder) error { return decodeCheckout(d, &req) }); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.orders.Checkout(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeOK(w, http.StatusCreated, "order created", func(e *jx.Encoder) {
		e.Field("order_id", func(e *jx.Encoder) { e.Str(res.OrderID) })
		e.Field("total_amount", func(e *jx.Encoder) { e.Int64(res.TotalAmount) })
		e.Field("discount_amount", func(e *jx.Encoder) { e.Int64(res.DiscountAmount) })
	})
}

// GetOrder returns the order projection to its customer or vendor.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := headerID(r, headerUserID)
	if err == nil && userID == 0 {
		err = ErrInvalidIdentity
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	vendorID, err := headerID(r, headerVendorID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	v, err := h.orders.View(r.Context(), order.ViewQuery{
		OrderID:     r.PathValue("id"),
		RequesterID: userID,
		VendorID:    vendorID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeView(w, "order found", v)
}

// UpdateOrder applies a partial lifecycle update.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	vendorID, err := headerID(r, headerVendorID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	u := order.LifecycleUpdate{OrderID: r.PathValue("id"), VendorID: vendorID}
	if err := decodeBody(r, w, func(d *jx.Decoder) error { return decodeLifecycle(d, &u) }); err != nil {
		writeError(w, r, err)
		return
	}

	v, err := h.orders.UpdateLifecycle(r.Context(), u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeView(w, "order updated", v)
}

func writeView(w http.ResponseWriter, msg string, v *order.View) {
	writeOK(w, http.StatusOK, msg, func(e *jx.Encoder) {
		e.FieldStart("order")
		v.Encode(e)
	})
}

func decodeCheckout(d *jx.Decoder, req *order.CheckoutRequest) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "customer_id":
			req.CustomerID, err = d.Int64()
		case "vendor_id":
			req.VendorID, err = d.Int64()
		case "discount_policy_id":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var id int64
			id, err = d.Int64()
			req.PolicyID = &id
		case "note":
			req.Note, err = optStr(d)
		case "payment_method":
			var s string
			s, err = d.Str()
			req.PaymentMethod = order.PaymentMethod(s)
		case "is_delivered":
			req.Delivery, err = d.Bool()
		case "shipping_address":
			req.Address, err = optStr(d)
		default:
			return d.Skip()
		}
		return err
	})
}

func decodeLifecycle(d *jx.Decoder, u *order.LifecycleUpdate) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		switch string(key) {
		case "refund_status":
			s, err := d.Str()
			if err != nil {
				return err
			}
			status := order.RefundStatus(s)
			u.RefundStatus = &status
		case "refund_at":
			s, err := d.Str()
			if err != nil {
				return err
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return ErrInvalidTimestamp
			}
			u.RefundAt = &t
		case "is_completed":
			b, err := d.Bool()
			if err != nil {
				return err
			}
			u.IsCompleted = &b
		case "is_delivered":
			b, err := d.Bool()
			if err != nil {
				return err
			}
			u.IsDelivered = &b
		case "deliver_status":
			s, err := d.Str()
			if err != nil {
				return err
			}
			status := order.DeliverStatus(s)
			u.DeliverStatus = &status
		default:
			return d.Skip()
		}
		return nil
	})
}

func optStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
