package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/bigtable"
)

// BigtableFetcher adapts a cloud.google.com/go/bigtable client into
// the BlockFetcher black box. Row key / cell layout follows the
// historical Solana ledger archive convention: row key is the
// inverted slot number, "blocks" column family, single versioned cell
// holding the serialized confirmed block. BigtableFetcher assumes the
// cell value is already the JSON-parsed block body and returns it
// unmodified for the canonicalizer to process.
type BigtableFetcher struct {
	table *bigtable.Table
}

func NewBigtableFetcher(client *bigtable.Client, tableName string) *BigtableFetcher {
	return &BigtableFetcher{table: client.Open(tableName)}
}

func (f *BigtableFetcher) FetchBlock(ctx context.Context, slot uint64) ([]byte, uint64, *int64, bool, error) {
	row, err := f.table.ReadRow(ctx, slotToBlocksKey(slot),
		bigtable.RowFilter(bigtable.LatestNFilter(1)))
	if err != nil {
		return nil, 0, nil, false, fmt.Errorf("archive: failed to read row for slot(%d): %w", slot, err)
	}
	cells, ok := row["blocks"]
	if !ok || len(cells) == 0 {
		return nil, 0, nil, false, nil
	}
	value := cells[0].Value

	var meta struct {
		BlockHeight *uint64 `json:"blockHeight"`
		BlockTime   *int64  `json:"blockTime"`
	}
	if err := json.Unmarshal(value, &meta); err != nil {
		return nil, 0, nil, false, fmt.Errorf("archive: failed to decode block envelope for slot(%d): %w", slot, err)
	}
	if meta.BlockHeight == nil {
		return nil, 0, nil, false, fmt.Errorf("archive: block(slot=%d) has no block_height", slot)
	}
	return value, *meta.BlockHeight, meta.BlockTime, true, nil
}

// slotToBlocksKey mirrors solana-storage-bigtable's row key scheme:
// slots are stored in descending order by inverting against the
// maximum slot value so a reverse scan starts at the newest block.
func slotToBlocksKey(slot uint64) string {
	return fmt.Sprintf("%016x", ^uint64(0)-slot)
}
