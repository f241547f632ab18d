package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PostgresRepository reads and writes the classifieds tables. Its methods
// take a querier so the managers can run several of them inside one
// transaction opened with withTx.
type PostgresRepository struct {
	pool    dbPool
	tables  StorageTables
	nowFunc func() time.Time
	idFunc  func() uuid.UUID
}

func NewPostgresRepository(pool dbPool, tables StorageTables) *PostgresRepository {
	return &PostgresRepository{
		pool:    pool,
		tables:  tables,
		nowFunc: time.Now,
		idFunc:  func() uuid.UUID { return uuid.Must(uuid.NewV7()) },
	}
}

func (r *PostgresRepository) withClock(now func() time.Time) {
	if now == nil {
		return
	}
	r.nowFunc = now
}

func (r *PostgresRepository) withIDs(next func() uuid.UUID) {
	if next == nil {
		return
	}
	r.idFunc = next
}

// newID returns a time-ordered id for a new row.
func (r *PostgresRepository) newID() uuid.UUID {
	if r.idFunc == nil {
		return uuid.Must(uuid.NewV7())
	}
	return r.idFunc()
}

// now returns the current time in UTC at the precision Postgres stores.
func (r *PostgresRepository) now() time.Time {
	if r.nowFunc == nil {
		return time.Now().UTC().Truncate(time.Microsecond)
	}
	return r.nowFunc().UTC().Truncate(time.Microsecond)
}

// withTx runs fn inside a transaction and commits when fn returns nil.
func (r *PostgresRepository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op if committed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *PostgresRepository) table(name string) string {
	return sanitizeIdentifier(name)
}
