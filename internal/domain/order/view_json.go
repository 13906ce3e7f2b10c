package order

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Encode writes the projection as a JSON object.
func (v *View) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Str(v.ID) })
	e.Field("customer_id", func(e *jx.Encoder) { e.Int64(v.CustomerID) })
	e.Field("vendor_id", func(e *jx.Encoder) { e.Int64(v.VendorID) })
	e.Field("discount_amount", func(e *jx.Encoder) { e.Int64(v.DiscountAmount) })
	e.Field("note", func(e *jx.Encoder) { e.Str(v.Note) })
	e.Field("payment_methods", func(e *jx.Encoder) { e.Str(string(v.PaymentMethod)) })
	e.Field("refund_status", func(e *jx.Encoder) { e.Str(string(v.RefundStatus)) })
	e.Field("refund_at", func(e *jx.Encoder) {
		if v.RefundAt == nil {
			e.Null()
			return
		}
		e.Str(v.RefundAt.UTC().Format(time.RFC3339Nano))
	})
	e.Field("is_completed", func(e *jx.Encoder) { e.Bool(v.IsCompleted) })
	e.Field("is_delivered", func(e *jx.Encoder) { e.Bool(v.IsDelivered) })
	e.Field("total_price", func(e *jx.Encoder) { e.Int64(v.TotalPrice) })
	e.Field("address_info", func(e *jx.Encoder) { e.Str(v.Address) })
	e.Field("deliver_status", func(e *jx.Encoder) { e.Str(string(v.DeliverStatus)) })
	e.Field("version", func(e *jx.Encoder) { e.Int64(v.Version) })
	e.Field("items", func(e *jx.Encoder) {
		e.ArrStart()
		for i := range v.Items {
			v.Items[i].Encode(e)
		}
		e.ArrEnd()
	})
	e.ObjEnd()
}

// Decode reads a projection written by Encode. Unknown fields are skipped.
func (v *View) Decode(d *jx.Decoder) error {
	if v == nil {
		return errors.New("invalid: unable to decode View to nil")
	}
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			v.ID, err = d.Str()
		case "customer_id":
			v.CustomerID, err = d.Int64()
		case "vendor_id":
			v.VendorID, err = d.Int64()
		case "discount_amount":
			v.DiscountAmount, err = d.Int64()
		case "note":
			v.Note, err = d.Str()
		case "payment_methods":
			var s string
			s, err = d.Str()
			v.PaymentMethod = PaymentMethod(s)
		case "refund_status":
			var s string
			s, err = d.Str()
			v.RefundStatus = RefundStatus(s)
		case "refund_at":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var s string
			if s, err = d.Str(); err != nil {
				return errors.Wrap(err, "refund_at")
			}
			t, perr := time.Parse(time.RFC3339Nano, s)
			if perr != nil {
				return errors.Wrap(perr, "parse refund_at")
			}
			v.RefundAt = &t
		case "is_completed":
			v.IsCompleted, err = d.Bool()
		case "is_delivered":
			v.IsDelivered, err = d.Bool()
		case "total_price":
			v.TotalPrice, err = d.Int64()
		case "address_info":
			v.Address, err = d.Str()
		case "deliver_status":
			var s string
			s, err = d.Str()
			v.DeliverStatus = DeliverStatus(s)
		case "version":
			v.Version, err = d.Int64()
		case "items":
			v.Items = v.Items[:0]
			err = d.Arr(func(d *jx.Decoder) error {
				var it ViewItem
				if err := it.Decode(d); err != nil {
					return err
				}
				v.Items = append(v.Items, it)
				return nil
			})
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode field %q", key)
		}
		return nil
	})
}

// Encode writes the item as a JSON object.
func (it *ViewItem) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.Field("product_id", func(e *jx.Encoder) { e.Int64(it.ProductID) })
	e.Field("product_name", func(e *jx.Encoder) { e.Str(it.ProductName) })
	e.Field("product_image", func(e *jx.Encoder) { e.Str(it.ProductImage) })
	e.Field("price", func(e *jx.Encoder) { e.Int64(it.Price) })
	e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
	e.Field("subtotal", func(e *jx.Encoder) { e.Int64(it.Subtotal) })
	e.Field("selected_sugar", func(e *jx.Encoder) { e.Str(it.Sugar) })
	e.Field("selected_ice", func(e *jx.Encoder) { e.Str(it.Ice) })
	e.Field("selected_size", func(e *jx.Encoder) { e.Str(it.Size) })
	e.ObjEnd()
}

// Decode reads an item written by Encode.
func (it *ViewItem) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "product_id":
			it.ProductID, err = d.Int64()
		case "product_name":
			it.ProductName, err = d.Str()
		case "product_image":
			it.ProductImage, err = d.Str()
		case "price":
			it.Price, err = d.Int64()
		case "quantity":
			it.Quantity, err = d.Int()
		case "subtotal":
			it.Subtotal, err = d.Int64()
		case "selected_sugar":
			it.Sugar, err = d.Str()
		case "selected_ice":
			it.Ice, err = d.Str()
		case "selected_size":
			it.Size, err = d.Str()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode item field %q", key)
		}
		return nil
	})
}
