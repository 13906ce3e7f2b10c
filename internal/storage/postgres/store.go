package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/drinkhub/internal/domain/order"
)

var (
	_ order.Store = (*Store)(nil)
	_ order.Tx    = (*tx)(nil)
)

// Store implements order.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store that uses the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InTx runs fn inside a READ COMMITTED transaction. Rows are serialized with
// SELECT ... FOR UPDATE where the domain asks for a lock.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(t pgx.Tx) error {
		return fn(ctx, &tx{q: t})
	})
}

// GetView loads the order projection.
func (s *Store) GetView(ctx context.Context, id string) (*order.View, error) {
	return getView(ctx, s.pool, id)
}

// tx implements order.Tx on top of a pgx transaction.
type tx struct {
	q querier
}
