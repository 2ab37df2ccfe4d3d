// Package canon applies the vote-transaction minimization policy to a
// confirmed block body that is already in the JSON-parsed
// representation the rest of the pipeline operates on; it does not
// decode binary or protobuf block encodings. A malformed individual
// transaction is logged and kept rather than dropped: decoding here
// never fails the whole block.
package canon

import (
	"encoding/json"
	"fmt"
	"log"
)

// VoteProgramID is Solana's well-known consensus-vote program id.
const VoteProgramID = "Vote111111111111111111111111111111111111111"

// Instruction mirrors the minimal shape of a JSON-parsed instruction
// needed to decide whether it targets the vote program. Both the
// parsed-message and raw-message shapes are handled: ProgramID is
// populated directly for parsed instructions, while ProgramIDIndex
// resolves against the message's account_keys for raw/compiled ones.
type Instruction struct {
	ProgramID      string `json:"programId,omitempty"`
	ProgramIDIndex *int   `json:"programIdIndex,omitempty"`
}

// Message is the minimal shape of a transaction message needed for
// minimization: its account keys (for resolving ProgramIDIndex) and
// its top-level instruction list.
type Message struct {
	AccountKeys  []AccountKey  `json:"accountKeys"`
	Instructions []Instruction `json:"instructions"`
}

// AccountKey is an account key entry; raw messages encode it as a
// bare pubkey string, parsed messages as an object with a "pubkey"
// field. UnmarshalJSON accepts either shape.
type AccountKey struct {
	Pubkey string
}

func (a *AccountKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Pubkey = s
		return nil
	}
	var obj struct {
		Pubkey string `json:"pubkey"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	a.Pubkey = obj.Pubkey
	return nil
}

// Transaction is the minimal shape of an encoded transaction entry
// within a confirmed block needed for minimization.
type Transaction struct {
	Transaction struct {
		Message Message `json:"message"`
	} `json:"transaction"`
}

// Block is the minimal shape of a JSON-parsed confirmed block body
// the canonicalizer and minimizer operate on. Unknown fields are
// preserved via RawMessage round-tripping at the call site; this
// type exists only to read/rewrite the transactions array.
type Block struct {
	Transactions []json.RawMessage `json:"transactions"`
}

// Process takes payload already JSON-parsed upstream (per the
// black-box FetchBlock contract). With noMinimization set it returns
// payload unchanged; otherwise it re-encodes it with consensus-vote
// transactions stripped. It never mutates its input.
func Process(payload []byte, noMinimization bool) ([]byte, error) {
	if noMinimization {
		return payload, nil
	}
	return FilterVoteTransactions(payload)
}

// FilterVoteTransactions drops every transaction whose sole top-level
// instruction targets the vote program. A transaction with more than
// one top-level instruction is always kept, even if one of them is a
// vote instruction — minimization only removes pure vote noise.
func FilterVoteTransactions(payload []byte) ([]byte, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("canon: failed to parse block: %w", err)
	}
	txsRaw, ok := raw["transactions"]
	if !ok {
		// No transactions field; nothing to filter.
		return payload, nil
	}
	var txs []json.RawMessage
	if err := json.Unmarshal(txsRaw, &txs); err != nil {
		return nil, fmt.Errorf("canon: failed to parse transactions: %w", err)
	}

	kept := make([]json.RawMessage, 0, len(txs))
	for _, txRaw := range txs {
		isVote, err := isSoleVoteInstruction(txRaw)
		if err != nil {
			// A malformed individual transaction is logged and kept
			// rather than dropped; minimization is a size
			// optimization, not a correctness filter.
			log.Printf("[canon] failed to decode transaction, keeping it: %v", err)
			kept = append(kept, txRaw)
			continue
		}
		if isVote {
			continue
		}
		kept = append(kept, txRaw)
	}

	keptBytes, err := json.Marshal(kept)
	if err != nil {
		return nil, fmt.Errorf("canon: failed to re-encode transactions: %w", err)
	}
	raw["transactions"] = keptBytes
	out, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("canon: failed to re-encode block: %w", err)
	}
	return out, nil
}

func isSoleVoteInstruction(txRaw json.RawMessage) (bool, error) {
	var tx Transaction
	if err := json.Unmarshal(txRaw, &tx); err != nil {
		return false, err
	}
	msg := tx.Transaction.Message
	if len(msg.Instructions) != 1 || len(msg.AccountKeys) == 0 {
		return false, nil
	}
	ix := msg.Instructions[0]
	if ix.ProgramID != "" {
		return ix.ProgramID == VoteProgramID, nil
	}
	if ix.ProgramIDIndex != nil {
		idx := *ix.ProgramIDIndex
		if idx < 0 || idx >= len(msg.AccountKeys) {
			return false, nil
		}
		return msg.AccountKeys[idx].Pubkey == VoteProgramID, nil
	}
	return false, nil
}
