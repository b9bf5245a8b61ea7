package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// tableColumns lists every persisted table and the column order its
// CSV uses, driving the generic export/import below. Order matches
// each table's CREATE TABLE in schema.go.
var tableColumns = map[string][]string{
	"locks":     {"mint", "acquired_at"},
	"market":    {"mint", "pool", "protocol", "open_price", "close_price", "is_open", "opened_at", "closed_at"},
	"ticks":     {"id", "mint", "pool", "protocol", "price_base", "base_reserve", "quote_reserve", "slot", "tick_second", "updated_at"},
	"tokens":    {"uuid", "signature", "slot", "blocktime_ms", "program", "mint", "creator", "pool", "basevault", "quotevault", "price", "initbase", "initquote", "lastbase", "lastquote", "decimals", "supply", "txs", "servtime_ms", "tokenage_ms"},
	"trades":    {"uuid", "mint", "pool", "protocol", "hash", "opened_at", "closed_at", "entry_price", "units", "remamount", "remtoken", "realized", "trailcount", "nextlevel", "partialsell", "total", "reason"},
	"signature": {"id", "uuid", "mint", "signature", "kind", "created_at"},
	"wallet":    {"id", "public_key", "balance_lamports", "updated_at"},
}

// AllTableNames lists the tables ExportAllCSV/ImportAllCSV cover, in
// dependency order (locks/market/tokens before trades/signature, which
// reference a trade's mint).
var AllTableNames = []string{"locks", "market", "ticks", "tokens", "trades", "signature", "wallet"}

// ExportAllCSV writes every table to "<table>.csv" under dir, the cold-
// backup spec §6 requires before a clean shutdown ("export all tables
// to CSV in ./database then exit 0").
func ExportAllCSV(ctx context.Context, pool *pgxpool.Pool, dir string) (map[string]int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	counts := make(map[string]int, len(AllTableNames))
	for _, table := range AllTableNames {
		n, err := exportTableCSV(ctx, pool, table, filepath.Join(dir, table+".csv"))
		if err != nil {
			return counts, fmt.Errorf("export %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// ImportAllCSV reloads every table from "<table>.csv" under dir via
// CopyFrom, restoring state after a schema rebuild without replaying
// the entire stream.
func ImportAllCSV(ctx context.Context, pool *pgxpool.Pool, dir string) (map[string]int64, error) {
	counts := make(map[string]int64, len(AllTableNames))
	for _, table := range AllTableNames {
		path := filepath.Join(dir, table+".csv")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		n, err := importTableCSV(ctx, pool, table, path)
		if err != nil {
			return counts, fmt.Errorf("import %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// ExportTokensCSV writes just the tokens table to path, kept as a
// standalone entry point for callers that only care about token state
// (e.g. an operator inspecting enrichment output without a full
// export).
func ExportTokensCSV(ctx context.Context, pool *pgxpool.Pool, path string) (int, error) {
	return exportTableCSV(ctx, pool, "tokens", path)
}

// ImportTokensCSV bulk-loads a previously exported tokens CSV.
func ImportTokensCSV(ctx context.Context, pool *pgxpool.Pool, path string) (int64, error) {
	return importTableCSV(ctx, pool, "tokens", path)
}

func exportTableCSV(ctx context.Context, pool *pgxpool.Pool, table, path string) (int, error) {
	cols, ok := tableColumns[table]
	if !ok {
		return 0, fmt.Errorf("unknown table %q", table)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write(cols); err != nil {
		return 0, err
	}

	rows, err := pool.Query(ctx, fmt.Sprintf("SELECT %s FROM %s", joinCols(cols), table))
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return count, fmt.Errorf("scan %s row: %w", table, err)
		}
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = fmt.Sprint(v)
			if v == nil {
				record[i] = ""
			}
		}
		if err := w.Write(record); err != nil {
			return count, err
		}
		count++
	}
	return count, rows.Err()
}

func importTableCSV(ctx context.Context, pool *pgxpool.Pool, table, path string) (int64, error) {
	cols, ok := tableColumns[table]
	if !ok {
		return 0, fmt.Errorf("unknown table %q", table)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) != len(cols) {
		return 0, fmt.Errorf("unexpected csv column count for %s: got %d want %d", table, len(header), len(cols))
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, joinCols(cols), joinCols(placeholders))

	var batch pgx.Batch
	rowCount := int64(0)
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		args := make([]interface{}, len(record))
		for i, v := range record {
			if v == "" {
				args[i] = nil
			} else {
				args[i] = v
			}
		}
		batch.Queue(insertSQL, args...)
		rowCount++
	}
	if rowCount == 0 {
		return 0, nil
	}

	// CSV values arrive as text; passed as query parameters against a
	// plain INSERT (not pgx's binary CopyFrom), Postgres coerces each
	// one to its column's real type during planning, so one generic
	// importer covers every table regardless of column types.
	results := pool.SendBatch(ctx, &batch)
	defer results.Close()
	for i := int64(0); i < rowCount; i++ {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return rowCount, nil
}

func joinCols(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
