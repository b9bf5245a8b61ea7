package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SignatureLog appends to the signature table, the audit trail of
// every on-chain transaction the trade monitor submitted for a given
// trade (spec §3's Signature log): one row per buy, partial sell, or
// final sell.
type SignatureLog struct {
	pool *pgxpool.Pool
}

// NewSignatureLog builds a SignatureLog backed by pool.
func NewSignatureLog(pool *pgxpool.Pool) *SignatureLog { return &SignatureLog{pool: pool} }

// Append records one transaction signature against a trade uuid/mint.
// kind is a short tag ("buy", "partial_sell", "sell") distinguishing
// which step of the trade lifecycle produced it.
func (s *SignatureLog) Append(ctx context.Context, id uuid.UUID, mint, signature, kind string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO signature (uuid, mint, signature, kind) VALUES ($1,$2,$3,$4)`,
		id, mint, signature, kind)
	return err
}
