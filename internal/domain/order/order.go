package order

import (
	"time"

	"github.com/xenking/drinkhub/internal/domain/fault"
)

var (
	ErrNotFound             = fault.New(fault.NotFound, "order_not_found", "order not found")
	ErrInvalidRequest       = fault.New(fault.Validation, "invalid_request", "customer and vendor are required")
	ErrInvalidPaymentMethod = fault.New(fault.Validation, "invalid_payment_method", "payment method must be cash or balance")
	ErrAddressRequired      = fault.New(fault.Validation, "address_required", "shipping address is required for delivery")
	ErrVendorUnavailable    = fault.New(fault.BusinessRule, "vendor_unavailable", "vendor is not accepting orders")
	ErrInvalidStatus        = fault.New(fault.BusinessRule, "invalid_status", "invalid status value")
	ErrRefundAtRequired     = fault.New(fault.Validation, "refund_at_required", "refund_at is required when refunding")
	ErrAlreadyRefunded      = fault.New(fault.BusinessRule, "already_refunded", "order has already been refunded")
	ErrInvalidTransition    = fault.New(fault.BusinessRule, "invalid_transition", "refund status transition not allowed")
)

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentBalance PaymentMethod = "balance"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentBalance
}

// RefundStatus is the refund axis of the order lifecycle.
type RefundStatus string

const (
	RefundNone     RefundStatus = "none"
	RefundPending  RefundStatus = "pending"
	RefundRefunded RefundStatus = "refunded"
	RefundRejected RefundStatus = "rejected"
)

// Valid reports whether s is a known refund status.
func (s RefundStatus) Valid() bool {
	switch s {
	case RefundNone, RefundPending, RefundRefunded, RefundRejected:
		return true
	}
	return false
}

// refundTransitions lists the allowed moves between distinct refund statuses.
// Refunded is terminal.
var refundTransitions = map[RefundStatus][]RefundStatus{
	RefundNone:     {RefundPending, RefundRefunded, RefundRejected},
	RefundPending:  {RefundNone, RefundRefunded, RefundRejected},
	RefundRejected: {RefundNone, RefundPending},
}

// CanTransition reports whether the refund status may move from s to next.
func (s RefundStatus) CanTransition(next RefundStatus) bool {
	for _, allowed := range refundTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DeliverStatus is the delivery axis of the order lifecycle.
type DeliverStatus string

const (
	DeliverNone       DeliverStatus = "none"
	DeliverDelivering DeliverStatus = "delivering"
	DeliverDelivered  DeliverStatus = "delivered"
)

// Valid reports whether s is a known delivery status.
func (s DeliverStatus) Valid() bool {
	switch s {
	case DeliverNone, DeliverDelivering, DeliverDelivered:
		return true
	}
	return false
}

// Order is a finalized purchase. Prices are frozen at creation.
type Order struct {
	ID             string
	CustomerID     int64
	VendorID       int64
	PolicyID       *int64
	TotalPrice     int64
	DiscountAmount int64
	PaymentMethod  PaymentMethod
	RefundStatus   RefundStatus
	RefundAt       *time.Time
	IsCompleted    bool
	IsDelivered    bool
	DeliverStatus  DeliverStatus
	Note           string
	Address        string
	CreatedAt      time.Time
	// Version grows by one with every lifecycle write.
	Version int64
	Items   []LineItem
}

// LineItem is an order line with the unit price captured at checkout.
type LineItem struct {
	ProductID int64
	Quantity  int
	UnitPrice int64
	Sugar     string
	Ice       string
	Size      string
}

// Gross is the pre-discount total of the order.
func (o *Order) Gross() int64 {
	var sum int64
	for _, it := range o.Items {
		sum += it.UnitPrice * int64(it.Quantity)
	}
	return sum
}

// View is the read projection of an order returned to clients.
type View struct {
	ID             string
	CustomerID     int64
	VendorID       int64
	DiscountAmount int64
	Note           string
	PaymentMethod  PaymentMethod
	RefundStatus   RefundStatus
	RefundAt       *time.Time
	IsCompleted    bool
	IsDelivered    bool
	TotalPrice     int64
	Address        string
	DeliverStatus  DeliverStatus
	// Version is the order version the projection was read at.
	Version int64
	Items   []ViewItem
}

// ViewItem is a line of the projection joined with product display data.
type ViewItem struct {
	ProductID    int64
	ProductName  string
	ProductImage string
	Price        int64
	Quantity     int
	Subtotal     int64
	Sugar        string
	Ice          string
	Size         string
}
