package order

import (
	"time"

	"github.com/go-faster/jx"
)

// Event types written to the outbox.
const (
	EventCreated   = "order.created"
	EventCompleted = "order.completed"
	EventRefunded  = "order.refunded"
)

// Event is a state change recorded in the same transaction as the change
// itself, for asynchronous delivery.
type Event struct {
	ID        string
	Type      string
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

func newEvent(id, typ string, o *Order, at time.Time) Event {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.Obj(func(e *jx.Encoder) {
		e.Field("order_id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("customer_id", func(e *jx.Encoder) { e.Int64(o.CustomerID) })
		e.Field("vendor_id", func(e *jx.Encoder) { e.Int64(o.VendorID) })
		e.Field("total_price", func(e *jx.Encoder) { e.Int64(o.TotalPrice) })
		e.Field("discount_amount", func(e *jx.Encoder) { e.Int64(o.DiscountAmount) })
		e.Field("payment_method", func(e *jx.Encoder) { e.Str(string(o.PaymentMethod)) })
		e.Field("refund_status", func(e *jx.Encoder) { e.Str(string(o.RefundStatus)) })
		e.Field("is_completed", func(e *jx.Encoder) { e.Bool(o.IsCompleted) })
		e.Field("occurred_at", func(e *jx.Encoder) { e.Str(at.UTC().Format(time.RFC3339Nano)) })
	})

	return Event{
		ID:        id,
		Type:      typ,
		Key:       o.ID,
		Payload:   append([]byte(nil), e.Bytes()...),
		CreatedAt: at,
	}
}
