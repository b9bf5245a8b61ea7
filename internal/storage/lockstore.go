package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LockStore backs step 1 of spec §4.12's trade-open sequence: a
// DB-backed mint lock acquired before any in-process guard, so two
// engine instances pointed at the same database can never both open a
// position on the same mint.
type LockStore struct {
	pool *pgxpool.Pool
}

// NewLockStore builds a LockStore backed by pool.
func NewLockStore(pool *pgxpool.Pool) *LockStore { return &LockStore{pool: pool} }

// Acquire attempts to claim mint, returning true if this call won the
// race. Uses INSERT ... ON CONFLICT DO NOTHING RETURNING so the claim
// and the conflict check happen in one round trip.
func (s *LockStore) Acquire(ctx context.Context, mint string) (bool, error) {
	var got string
	err := s.pool.QueryRow(ctx, `INSERT INTO locks (mint) VALUES ($1) ON CONFLICT DO NOTHING RETURNING mint`, mint).Scan(&got)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Release drops mint's lock row. Callers must treat this as
// best-effort and idempotent: it runs on every exit path of the follow
// task, including cancellation, so a mint lock never outlives its
// trade (spec §4.12's "Mint open guard").
func (s *LockStore) Release(ctx context.Context, mint string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM locks WHERE mint = $1`, mint)
	return err
}
