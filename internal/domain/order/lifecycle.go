package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/drinkhub/internal/domain/ledger"
)

// LifecycleUpdate carries the optional state changes of a management request.
// Nil fields are left untouched.
type LifecycleUpdate struct {
	OrderID string
	// VendorID, when set, restricts the update to orders of that vendor.
	VendorID int64

	RefundStatus  *RefundStatus
	RefundAt      *time.Time
	IsCompleted   *bool
	IsDelivered   *bool
	DeliverStatus *DeliverStatus
}

func (u LifecycleUpdate) validate() error {
	if u.OrderID == "" {
		return ErrNotFound
	}
	if u.RefundStatus != nil {
		if !u.RefundStatus.Valid() {
			return ErrInvalidStatus
		}
		if *u.RefundStatus == RefundRefunded && u.RefundAt == nil {
			return ErrRefundAtRequired
		}
	}
	if u.DeliverStatus != nil && !u.DeliverStatus.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// transition is the decided set of effects for one update.
type transition struct {
	complete      bool // false -> true
	uncomplete    bool // true -> false
	refund        bool // entering refunded
	refundStatus  *RefundStatus
	reverseIncome bool
}

// plan checks every rule against the locked order before anything is written.
func plan(o *Order, u LifecycleUpdate) (transition, error) {
	var t transition

	if u.IsCompleted != nil && *u.IsCompleted != o.IsCompleted {
		if *u.IsCompleted {
			if o.RefundStatus == RefundRefunded {
				return t, ErrAlreadyRefunded
			}
			t.complete = true
		} else {
			t.uncomplete = true
		}
	}

	if u.RefundStatus != nil {
		next := *u.RefundStatus
		switch {
		case o.RefundStatus == RefundRefunded:
			return t, ErrAlreadyRefunded
		case next == o.RefundStatus:
		case !o.RefundStatus.CanTransition(next):
			return t, ErrInvalidTransition
		default:
			t.refundStatus = &next
			if next == RefundRefunded {
				t.refund = true
				// Only revenue recognised by a completion that still stands
				// is reversed.
				t.reverseIncome = o.IsCompleted || t.complete
			}
		}
	}

	return t, nil
}

// UpdateLifecycle applies completion, refund and delivery changes to an
// order atomically and returns the refreshed projection.
func (s *Service) UpdateLifecycle(ctx context.Context, u LifecycleUpdate) (_ *View, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdateLifecycle")
	defer func() { observe(ctx, span, s.updates, rerr) }()

	if err := u.validate(); err != nil {
		return nil, err
	}

	var refunded bool
	if err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, u.OrderID)
		if err != nil {
			return errors.Wrap(err, "lock order")
		}
		if u.VendorID != 0 && o.VendorID != u.VendorID {
			return ErrNotFound
		}

		t, err := plan(o, u)
		if err != nil {
			return err
		}
		now := s.now()

		if t.complete {
			if err := s.revenue.Increase(ctx, tx, o.VendorID, o.TotalPrice); err != nil {
				return errors.Wrap(err, "recognise revenue")
			}
			o.IsCompleted = true
			if err := tx.AppendEvent(ctx, newEvent(s.newID(), EventCompleted, o, now)); err != nil {
				return errors.Wrap(err, "append event")
			}
		}
		if t.uncomplete {
			o.IsCompleted = false
		}

		if t.refundStatus != nil {
			o.RefundStatus = *t.refundStatus
			o.RefundAt = nil
		}
		if t.refund {
			at := u.RefundAt.UTC()
			o.RefundAt = &at
			if o.PaymentMethod == PaymentBalance {
				if err := s.ledger.Credit(ctx, tx, ledger.Movement{
					CustomerID: o.CustomerID,
					Amount:     o.TotalPrice,
					Reason:     ledger.ReasonRefund,
					OrderID:    o.ID,
				}); err != nil {
					return errors.Wrap(err, "credit balance")
				}
			}
			if t.reverseIncome {
				if err := s.revenue.Decrease(ctx, tx, o.VendorID, o.TotalPrice); err != nil {
					return errors.Wrap(err, "reverse revenue")
				}
			}
			if err := tx.AppendEvent(ctx, newEvent(s.newID(), EventRefunded, o, now)); err != nil {
				return errors.Wrap(err, "append event")
			}
			refunded = true
		}

		if u.IsDelivered != nil {
			o.IsDelivered = *u.IsDelivered
		}
		if u.DeliverStatus != nil {
			o.DeliverStatus = *u.DeliverStatus
		}

		o.Version++
		if err := tx.UpdateOrderState(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "update lifecycle")
	}

	lg := zctx.From(ctx)
	if refunded {
		lg.Info("Order refunded", zap.String("order_id", u.OrderID))
	}

	// Reads that started before the commit may still be in flight, so the
	// projection is taken straight from the store and the cache only accepts
	// it over older versions.
	v, err := s.store.GetView(ctx, u.OrderID)
	if err != nil {
		if err := s.cache.Delete(ctx, u.OrderID); err != nil {
			lg.Warn("Failed to invalidate order view", zap.String("order_id", u.OrderID), zap.Error(err))
		}
		return nil, errors.Wrap(err, "get view")
	}
	if err := s.cache.Set(ctx, v); err != nil {
		lg.Warn("Failed to cache order view", zap.String("order_id", u.OrderID), zap.Error(err))
	}
	return v, nil
}
