package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rangesecurity/sb-dl-go/internal/ingest"
	"github.com/rangesecurity/sb-dl-go/internal/sanitize"
)

func unixToTime(sec *int64) *time.Time {
	if sec == nil {
		return nil
	}
	t := time.Unix(*sec, 0).UTC()
	return &t
}

func tableName(t ingest.Table) string {
	if t == ingest.TableSecondary {
		return "blocks_2"
	}
	return "blocks"
}

// InsertBlock performs an insert-or-ignore keyed on block_number: a
// duplicate is not an error. The payload is sanitized before the
// insert is attempted.
func (r *Repository) InsertBlock(ctx context.Context, rec ingest.BlockRecord) error {
	cleaned, err := sanitize.Document(rec.Payload)
	if err != nil {
		// Canonicalization failure: the payload itself is not valid
		// JSON. The caller logs it and spills the record to disk;
		// never fatal.
		return fmt.Errorf("repository: payload failed sanitization: %w", err)
	}
	table := tableName(rec.Table)
	query := fmt.Sprintf(
		`INSERT INTO %s (block_number, slot, "time", processed, data) VALUES ($1, $2, $3, true, $4)
		 ON CONFLICT (block_number) DO NOTHING`, table)
	_, err = r.db.Exec(ctx, query, rec.BlockHeight, rec.Slot, unixToTime(rec.BlockTime), cleaned)
	if err != nil {
		return fmt.Errorf("repository: failed to insert block(%d): %w", rec.BlockHeight, err)
	}
	return nil
}

// IndexedBlocks returns the block numbers already present in table,
// for the Indexed-set Loader.
func (r *Repository) IndexedBlocks(ctx context.Context, table ingest.Table) ([]uint64, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT block_number FROM %s`, tableName(table)))
	if err != nil {
		return nil, fmt.Errorf("repository: failed to select block numbers: %w", err)
	}
	defer rows.Close()
	var out []uint64
	for rows.Next() {
		var n uint64
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// IndexedSlots returns the slot numbers already present in table,
// skipping rows where slot is null (legacy archive rows with only
// height known).
func (r *Repository) IndexedSlots(ctx context.Context, table ingest.Table) ([]uint64, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT slot FROM %s WHERE slot IS NOT NULL`, tableName(table)))
	if err != nil {
		return nil, fmt.Errorf("repository: failed to select slots: %w", err)
	}
	defer rows.Close()
	var out []uint64
	for rows.Next() {
		var n uint64
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// SelectBlock selects rows matching filter from table.
func (r *Repository) SelectBlock(ctx context.Context, table ingest.Table, filter BlockFilter) ([]BlockRow, error) {
	name := tableName(table)
	var (
		query string
		args  []any
	)
	switch {
	case filter.Number != nil:
		query = fmt.Sprintf(`SELECT block_number, slot, "time", processed, data FROM %s WHERE block_number = $1`, name)
		args = []any{*filter.Number}
	case filter.Slot != nil:
		query = fmt.Sprintf(`SELECT block_number, slot, "time", processed, data FROM %s WHERE slot = $1`, name)
		args = []any{*filter.Slot}
	case filter.FirstBlock:
		query = fmt.Sprintf(`SELECT block_number, slot, "time", processed, data FROM %s ORDER BY block_number ASC LIMIT 1`, name)
	case filter.All:
		query = fmt.Sprintf(`SELECT block_number, slot, "time", processed, data FROM %s`, name)
	default:
		return nil, fmt.Errorf("repository: invalid block filter")
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to select block: %w", err)
	}
	defer rows.Close()
	var out []BlockRow
	for rows.Next() {
		var row BlockRow
		if err := rows.Scan(&row.BlockNumber, &row.Slot, &row.Time, &row.Processed, &row.Data); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SelectBlockByNumber is a narrow convenience wrapper over SelectBlock
// for gap-repair's "look up the last present block before the gap"
// step, returning the block's slot (if set) and whether a row exists.
func (r *Repository) SelectBlockByNumber(ctx context.Context, table ingest.Table, number int64) (*uint64, bool, error) {
	rows, err := r.SelectBlock(ctx, table, BlockFilter{Number: &number})
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0].Slot, true, nil
}

// FindGapEnd scans forward one block number at a time starting at
// startingNumber+1 and returns k-1, where k is the first present
// block number. Implemented as a row-by-row scan rather than a single
// SQL range query so the exact boundary semantics (including what
// happens when no gap exists at all) stay easy to reason about and
// to test.
func (r *Repository) FindGapEnd(ctx context.Context, table ingest.Table, startingNumber int64) (int64, error) {
	name := tableName(table)
	next := startingNumber + 1
	for {
		var exists bool
		err := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE block_number = $1)`, name), next).Scan(&exists)
		if err != nil {
			return 0, fmt.Errorf("repository: failed to check for block(%d): %w", next, err)
		}
		if exists {
			return next - 1, nil
		}
		next++
	}
}
