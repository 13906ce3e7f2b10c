package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/drinkhub/internal/domain/discount"
	"github.com/xenking/drinkhub/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, customer_id, vendor_id, discount_policy_id, total_price, discount_amount,
			payment_method, refund_status, refund_at, is_completed, is_delivered, deliver_status, note, address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, unit_price, sugar, ice, size)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	orderColumns = `id::text, customer_id, vendor_id, discount_policy_id, total_price, discount_amount,
		payment_method, refund_status, refund_at, is_completed, is_delivered, deliver_status, note, address, created_at,
		version`

	lockOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	updateOrderStateSQL = `UPDATE orders
		SET refund_status = $2, refund_at = $3, is_completed = $4, is_delivered = $5, deliver_status = $6,
			version = $7
		WHERE id = $1`

	listViewItemsSQL = `SELECT oi.product_id, COALESCE(p.name, ''), COALESCE(p.image, ''), oi.unit_price, oi.quantity,
			oi.sugar, oi.ice, oi.size
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`

	policyUsageIndex = "orders_policy_usage_idx"
)

// CreateOrder inserts the order and its line items.
func (t *tx) CreateOrder(ctx context.Context, o *order.Order) error {
	_, err := t.q.Exec(ctx, createOrderSQL,
		o.ID, o.CustomerID, o.VendorID, o.PolicyID, o.TotalPrice, o.DiscountAmount,
		string(o.PaymentMethod), string(o.RefundStatus), o.RefundAt, o.IsCompleted, o.IsDelivered,
		string(o.DeliverStatus), o.Note, o.Address, o.CreatedAt,
	)
	if err != nil {
		if name, ok := constraintViolation(err, codeUniqueViolation); ok && name == policyUsageIndex {
			return discount.ErrPolicyConsumed
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, it := range o.Items {
		if _, err := t.q.Exec(ctx, insertOrderItemSQL,
			o.ID, it.ProductID, it.Quantity, it.UnitPrice, it.Sugar, it.Ice, it.Size,
		); err != nil {
			return fmt.Errorf("creating items of order %q: %w", o.ID, err)
		}
	}
	return nil
}

// LockOrder returns the order header locked for the rest of the
// transaction. Line items are not loaded.
func (t *tx) LockOrder(ctx context.Context, id string) (*order.Order, error) {
	return getOrder(ctx, t.q, lockOrderSQL, id)
}

// UpdateOrderState writes the mutable lifecycle fields.
func (t *tx) UpdateOrderState(ctx context.Context, o *order.Order) error {
	tag, err := t.q.Exec(ctx, updateOrderStateSQL,
		o.ID, string(o.RefundStatus), o.RefundAt, o.IsCompleted, o.IsDelivered, string(o.DeliverStatus),
		o.Version,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func getOrder(ctx context.Context, q querier, query, id string) (*order.Order, error) {
	// Malformed ids can never match and would fail the uuid cast.
	if _, err := uuid.Parse(id); err != nil {
		return nil, order.ErrNotFound
	}
	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                             order.Order
		payment, refund, deliverState string
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.VendorID, &o.PolicyID, &o.TotalPrice, &o.DiscountAmount,
		&payment, &refund, &o.RefundAt, &o.IsCompleted, &o.IsDelivered, &deliverState,
		&o.Note, &o.Address, &o.CreatedAt, &o.Version,
	)
	o.PaymentMethod = order.PaymentMethod(payment)
	o.RefundStatus = order.RefundStatus(refund)
	o.DeliverStatus = order.DeliverStatus(deliverState)
	return o, err
}

// getView joins the order with its frozen line items and product display
// data.
func getView(ctx context.Context, q querier, id string) (*order.View, error) {
	o, err := getOrder(ctx, q, getOrderSQL, id)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, listViewItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("listing items of order %q: %w", id, err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.ViewItem, error) {
		var it order.ViewItem
		err := row.Scan(&it.ProductID, &it.ProductName, &it.ProductImage, &it.Price, &it.Quantity,
			&it.Sugar, &it.Ice, &it.Size)
		it.Subtotal = it.Price * int64(it.Quantity)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning items of order %q: %w", id, err)
	}

	return &order.View{
		ID:             o.ID,
		CustomerID:     o.CustomerID,
		VendorID:       o.VendorID,
		DiscountAmount: o.DiscountAmount,
		Note:           o.Note,
		PaymentMethod:  o.PaymentMethod,
		RefundStatus:   o.RefundStatus,
		RefundAt:       o.RefundAt,
		IsCompleted:    o.IsCompleted,
		IsDelivered:    o.IsDelivered,
		TotalPrice:     o.TotalPrice,
		Address:        o.Address,
		DeliverStatus:  o.DeliverStatus,
		Version:        o.Version,
		Items:          items,
	}, nil
}
