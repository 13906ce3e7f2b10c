package order

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/drinkhub/internal/domain/cart"
	"github.com/xenking/drinkhub/internal/domain/discount"
	"github.com/xenking/drinkhub/internal/domain/ledger"
	"github.com/xenking/drinkhub/internal/domain/product"
)

// CheckoutRequest holds the input for finalizing a customer's cart.
type CheckoutRequest struct {
	CustomerID    int64
	VendorID      int64
	PolicyID      *int64
	Note          string
	PaymentMethod PaymentMethod
	Delivery      bool
	Address       string
}

// CheckoutResult is the priced outcome of a successful checkout.
type CheckoutResult struct {
	OrderID        string
	TotalAmount    int64
	DiscountAmount int64
}

func (r *CheckoutRequest) normalize() error {
	if r.CustomerID <= 0 || r.VendorID <= 0 {
		return ErrInvalidRequest
	}
	if !r.PaymentMethod.Valid() {
		return ErrInvalidPaymentMethod
	}
	if r.Delivery {
		r.Address = strings.TrimSpace(r.Address)
		if r.Address == "" {
			return ErrAddressRequired
		}
	} else {
		r.Address = ""
	}
	return nil
}

// Checkout turns the customer's cart into an order in a single transaction:
// prices are frozen, at most one discount policy is applied, a balance
// payment is debited and the cart is removed. Any failure leaves cart,
// orders and balances untouched.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (_ *CheckoutResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Checkout")
	defer func() { observe(ctx, span, s.checkouts, rerr) }()

	if err := req.normalize(); err != nil {
		return nil, err
	}

	var o *Order
	if err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		o, err = s.checkout(ctx, tx, req)
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "checkout")
	}

	zctx.From(ctx).Info("Order created",
		zap.String("order_id", o.ID),
		zap.Int64("customer_id", o.CustomerID),
		zap.Int64("vendor_id", o.VendorID),
		zap.Int64("total_price", o.TotalPrice),
		zap.Int64("discount_amount", o.DiscountAmount),
		zap.String("payment_method", string(o.PaymentMethod)),
	)

	return &CheckoutResult{
		OrderID:        o.ID,
		TotalAmount:    o.TotalPrice,
		DiscountAmount: o.DiscountAmount,
	}, nil
}

func (s *Service) checkout(ctx context.Context, tx Tx, req CheckoutRequest) (*Order, error) {
	vendor, err := tx.GetVendor(ctx, req.VendorID)
	if err != nil {
		return nil, errors.Wrap(err, "get vendor")
	}
	if !vendor.Accepting() {
		return nil, ErrVendorUnavailable
	}

	c, err := tx.LockCart(ctx, req.CustomerID)
	if err != nil {
		return nil, errors.Wrap(err, "lock cart")
	}
	if c.Empty() {
		return nil, cart.ErrEmpty
	}
	if c.VendorID != req.VendorID {
		return nil, cart.ErrVendorMismatch
	}

	items, err := s.priceItems(ctx, tx, c)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:            s.newID(),
		CustomerID:    req.CustomerID,
		VendorID:      req.VendorID,
		PaymentMethod: req.PaymentMethod,
		RefundStatus:  RefundNone,
		DeliverStatus: DeliverNone,
		Note:          req.Note,
		Address:       req.Address,
		CreatedAt:     s.now(),
		Items:         items,
	}

	priced, err := s.discounts.Validate(ctx, tx, discount.Input{
		Gross:      o.Gross(),
		PolicyID:   req.PolicyID,
		CustomerID: req.CustomerID,
		VendorID:   req.VendorID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "validate discount")
	}
	o.PolicyID = priced.PolicyID
	o.TotalPrice = priced.Final
	o.DiscountAmount = priced.Discount

	if o.PaymentMethod == PaymentBalance {
		if err := s.ledger.Ensure(ctx, tx, o.CustomerID, o.TotalPrice); err != nil {
			return nil, errors.Wrap(err, "check balance")
		}
	}

	if err := tx.CreateOrder(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	if o.PaymentMethod == PaymentBalance {
		if err := s.ledger.Debit(ctx, tx, ledger.Movement{
			CustomerID: o.CustomerID,
			Amount:     o.TotalPrice,
			Reason:     ledger.ReasonCheckout,
			OrderID:    o.ID,
		}); err != nil {
			return nil, errors.Wrap(err, "debit balance")
		}
	}

	if err := tx.DeleteCart(ctx, o.CustomerID); err != nil {
		return nil, errors.Wrap(err, "delete cart")
	}

	if err := tx.AppendEvent(ctx, newEvent(s.newID(), EventCreated, o, o.CreatedAt)); err != nil {
		return nil, errors.Wrap(err, "append event")
	}

	return o, nil
}

// priceItems resolves and freezes the unit price of every cart line.
func (s *Service) priceItems(ctx context.Context, tx Tx, c *cart.Cart) ([]LineItem, error) {
	ids := make([]int64, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}

	fetched, err := tx.GetProducts(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[int64]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	items := make([]LineItem, 0, len(c.Items))
	for _, it := range c.Items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, &product.NotFoundError{ProductID: it.ProductID}
		}
		items = append(items, LineItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: p.UnitPrice(it.Size),
			Sugar:     it.Sugar,
			Ice:       it.Ice,
			Size:      it.Size,
		})
	}
	return items, nil
}
