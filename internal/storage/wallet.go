package storage

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WalletStore owns the single wallet row (spec §3's Wallet): the
// public key baseline written once at startup and a lamport balance
// that Adjust credits or debits.
type WalletStore struct {
	pool *pgxpool.Pool
}

// NewWalletStore builds a WalletStore backed by pool.
func NewWalletStore(pool *pgxpool.Pool) *WalletStore { return &WalletStore{pool: pool} }

// SetBaseline writes the wallet's public key and starting balance once;
// a later call is a no-op, since the baseline is set-once by design.
func (s *WalletStore) SetBaseline(ctx context.Context, publicKey string, lamports int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO wallet (id, public_key, balance_lamports) VALUES (1, $1, $2)
		 ON CONFLICT (id) DO NOTHING`,
		publicKey, lamports)
	return err
}

// Adjust applies delta (positive credit, negative debit) to the
// wallet's balance.
func (s *WalletStore) Adjust(ctx context.Context, delta int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE wallet SET balance_lamports = balance_lamports + $1, updated_at = now() WHERE id = 1`,
		delta)
	return err
}

// Balance reads the current lamport balance.
func (s *WalletStore) Balance(ctx context.Context) (int64, error) {
	var lamports int64
	err := s.pool.QueryRow(ctx, `SELECT balance_lamports FROM wallet WHERE id = 1`).Scan(&lamports)
	return lamports, err
}
