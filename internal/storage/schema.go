package storage

// createSchemaSQL is the full persisted schema (spec §3/§6): seven
// tables covering the mint-lock guard, the per-mint market snapshot,
// the high-frequency tick series, the enrichment-derived token state,
// open/closed trades, the append-only signature log, and the single
// wallet row. ticks is UNLOGGED -- it is the hottest write path by a
// wide margin and is entirely recreatable by replaying the stream, so
// WAL durability on it buys nothing but write amplification.
const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS locks (
	mint        TEXT PRIMARY KEY,
	acquired_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS market (
	mint          TEXT PRIMARY KEY,
	pool          TEXT,
	protocol      TEXT NOT NULL,
	open_price    DOUBLE PRECISION,
	close_price   DOUBLE PRECISION,
	is_open       BOOLEAN NOT NULL DEFAULT false,
	opened_at     TIMESTAMPTZ,
	closed_at     TIMESTAMPTZ
);

CREATE UNLOGGED TABLE IF NOT EXISTS ticks (
	id             UUID PRIMARY KEY,
	mint           TEXT NOT NULL,
	pool           TEXT NOT NULL,
	protocol       TEXT NOT NULL,
	price_base     DOUBLE PRECISION NOT NULL,
	base_reserve   NUMERIC,
	quote_reserve  NUMERIC,
	slot           BIGINT NOT NULL,
	tick_second    BIGINT NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ticks_mint_second_idx ON ticks (mint, tick_second);

CREATE TABLE IF NOT EXISTS tokens (
	uuid         UUID PRIMARY KEY,
	signature    TEXT UNIQUE,
	slot         BIGINT,
	blocktime_ms BIGINT,
	program      TEXT NOT NULL,
	mint         TEXT NOT NULL,
	creator      TEXT,
	pool         TEXT,
	basevault    TEXT,
	quotevault   TEXT,
	price        DOUBLE PRECISION,
	initbase     BIGINT,
	initquote    BIGINT,
	lastbase     BIGINT,
	lastquote    BIGINT,
	decimals     SMALLINT,
	supply       BIGINT,
	txs          BIGINT NOT NULL DEFAULT 0,
	servtime_ms  BIGINT,
	tokenage_ms  BIGINT
);
CREATE INDEX IF NOT EXISTS tokens_creator_idx ON tokens (creator);
CREATE INDEX IF NOT EXISTS tokens_mint_idx ON tokens (mint);
CREATE INDEX IF NOT EXISTS tokens_program_idx ON tokens (program);
CREATE INDEX IF NOT EXISTS tokens_slot_idx ON tokens (slot);
CREATE INDEX IF NOT EXISTS tokens_vaults_idx ON tokens (basevault, quotevault);
CREATE INDEX IF NOT EXISTS tokens_pool_idx ON tokens (pool);
CREATE INDEX IF NOT EXISTS tokens_mint_program_servtime_idx ON tokens (mint, program, servtime_ms DESC)
	INCLUDE (creator, pool, basevault, quotevault, price, initbase, initquote, lastbase, lastquote, decimals, supply, txs, tokenage_ms);

CREATE TABLE IF NOT EXISTS trades (
	uuid        UUID PRIMARY KEY,
	mint        TEXT NOT NULL,
	pool        TEXT,
	protocol    TEXT NOT NULL,
	hash        TEXT,
	opened_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	closed_at   TIMESTAMPTZ,
	entry_price DOUBLE PRECISION NOT NULL,
	units       BIGINT NOT NULL,
	remamount   DOUBLE PRECISION NOT NULL DEFAULT 0,
	remtoken    BIGINT NOT NULL DEFAULT 0,
	realized    DOUBLE PRECISION NOT NULL DEFAULT 0,
	trailcount  INT NOT NULL DEFAULT 0,
	nextlevel   DOUBLE PRECISION,
	partialsell BOOLEAN NOT NULL DEFAULT false,
	total       DOUBLE PRECISION,
	reason      TEXT
);
CREATE INDEX IF NOT EXISTS trades_hash_idx ON trades (hash);
CREATE INDEX IF NOT EXISTS trades_uuid_idx ON trades (uuid);
CREATE INDEX IF NOT EXISTS trades_open_uuid_idx ON trades (uuid) WHERE total IS NULL;
CREATE INDEX IF NOT EXISTS trades_open_mint_idx ON trades (mint) WHERE total IS NULL;

CREATE TABLE IF NOT EXISTS signature (
	id        BIGSERIAL PRIMARY KEY,
	uuid      UUID NOT NULL,
	mint      TEXT NOT NULL,
	signature TEXT NOT NULL,
	kind      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS signature_mint_idx ON signature (mint);
CREATE INDEX IF NOT EXISTS signature_uuid_idx ON signature (uuid);

CREATE TABLE IF NOT EXISTS wallet (
	id              INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	public_key      TEXT NOT NULL,
	balance_lamports BIGINT NOT NULL DEFAULT 0,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const dropSchemaSQL = `
DROP TABLE IF EXISTS signature;
DROP TABLE IF EXISTS trades;
DROP TABLE IF EXISTS tokens;
DROP TABLE IF EXISTS ticks;
DROP TABLE IF EXISTS market;
DROP TABLE IF EXISTS locks;
DROP TABLE IF EXISTS wallet;
`
