// Package ingest defines the in-flight unit that flows from a source
// driver through the canonicalizer to the persister.
package ingest

import "encoding/json"

// Table selects which of the two hash-partitioned block tables a
// BlockRecord is destined for. The partitioning is a caller-chosen
// hash split, not a replication scheme: reads that span partitions
// must union results.
type Table int

const (
	TablePrimary Table = iota + 1
	TableSecondary
)

func (t Table) String() string {
	switch t {
	case TablePrimary:
		return "primary"
	case TableSecondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// ParseTable maps the query surface's path parameter ("1" or "2") to
// a Table. Any other value is invalid per the query contract.
func ParseTable(n int) (Table, bool) {
	switch n {
	case 1:
		return TablePrimary, true
	case 2:
		return TableSecondary, true
	default:
		return 0, false
	}
}

// BlockRecord is the in-flight unit produced by a source driver,
// consumed exactly once by the persister. It is never mutated after
// creation; sanitization produces a new value rather than editing
// this one in place.
type BlockRecord struct {
	// Slot is optional and non-negative; absent only for legacy
	// archive rows where only the height is known.
	Slot *uint64
	// BlockHeight is required downstream and is the primary key of
	// the persisted block row.
	BlockHeight uint64
	// BlockTime is an optional absolute timestamp (unix seconds).
	BlockTime *int64
	// Payload is the canonical JSON-parsed block body, already
	// through the canonicalizer.
	Payload json.RawMessage
	// Table selects the destination partition.
	Table Table
}

// SlotOrHeight returns the slot when present, otherwise the block
// height. Used to name spill files, which key on slot when known.
func (b BlockRecord) SlotOrHeight() uint64 {
	if b.Slot != nil {
		return *b.Slot
	}
	return b.BlockHeight
}
