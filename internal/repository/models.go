// Package repository is the persistence layer: it turns ingest
// BlockRecords into rows, supports the indexed-set and gap-finding
// queries, and stores the IdlRecord/ProgramRecord/SquadRecord side
// tables.
package repository

import (
	"encoding/json"
	"time"
)

// BlockRow is the persisted form of a BlockRecord.
type BlockRow struct {
	BlockNumber uint64
	Slot        *uint64
	Time        *time.Time
	Processed   bool
	Data        json.RawMessage
}

// IdlRecord stores a program's IDL body for the height range in which
// it applied. Composite key (ProgramID, BeginHeight); EndHeight is a
// nullable upper bound, stored as the caller supplies it. Recording a
// newer IDL for the same program does not update the older row's
// EndHeight.
type IdlRecord struct {
	ProgramID   string
	BeginHeight int64
	EndHeight   *int64
	IDL         json.RawMessage
}

// ProgramRecord stores executable metadata for a program at the slot
// it was (re)deployed. Composite key (ProgramID, LastDeployedSlot);
// insert-if-absent only, an existing row at the same deploy slot is
// never updated.
type ProgramRecord struct {
	ProgramID         string
	LastDeployedSlot  int64
	ExecutableAccount string
	ExecutableData    []byte
}

// SquadRecord is a multisig account snapshot: account key, vault
// keys, voting-member keys, threshold, and the squads program version
// that owns it. Storage only: decoding squad accounts into this shape
// is handled elsewhere.
type SquadRecord struct {
	AccountKey     string
	VaultKeys      []string
	VotingMembers  []string
	Threshold      int32
	ProgramVersion int32
}

// BlockFilter selects rows in SelectBlock.
type BlockFilter struct {
	Number     *int64
	Slot       *int64
	FirstBlock bool
	All        bool
}
