package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const viewLoadTimeout = 5 * time.Second

// ViewQuery identifies an order and who is asking for it.
type ViewQuery struct {
	OrderID     string
	RequesterID int64
	// VendorID, when set, means the requester acts for that vendor.
	VendorID int64
}

// View returns the order projection if the requester may see it. Orders of
// other customers or vendors are reported as not found.
func (s *Service) View(ctx context.Context, q ViewQuery) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "order.View")
	defer span.End()

	if q.OrderID == "" {
		return nil, ErrNotFound
	}

	v, err := s.loadView(ctx, q.OrderID)
	if err != nil {
		return nil, err
	}

	if q.VendorID != 0 {
		if v.VendorID != q.VendorID {
			return nil, ErrNotFound
		}
	} else if v.CustomerID != q.RequesterID {
		return nil, ErrNotFound
	}
	return v, nil
}

// loadView reads through the cache; concurrent misses for one order share a
// single store query. The cache keeps whichever projection has the highest
// version, so a read that raced a lifecycle update cannot overwrite it.
func (s *Service) loadView(ctx context.Context, id string) (*View, error) {
	lg := zctx.From(ctx)

	v, err := s.cache.Get(ctx, id)
	switch {
	case err == nil:
		return v, nil
	case !errors.Is(err, ErrCacheMiss):
		lg.Warn("Failed to read order view from cache", zap.String("order_id", id), zap.Error(err))
	}

	ch := s.views.DoChan(id, func() (any, error) {
		// The read is shared, so one caller giving up must not fail the rest.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), viewLoadTimeout)
		defer cancel()

		v, err := s.store.GetView(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, v); err != nil {
			lg.Warn("Failed to cache order view", zap.String("order_id", id), zap.Error(err))
		}
		return v, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		if errors.Is(res.Err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(res.Err, "get view")
	}
	return res.Val.(*View), nil
}
