package canon

import (
	"encoding/json"
	"testing"
)

func makeBlock(txs ...string) []byte {
	joined := "["
	for i, tx := range txs {
		if i > 0 {
			joined += ","
		}
		joined += tx
	}
	joined += "]"
	return []byte(`{"blockHeight": 1, "transactions": ` + joined + `}`)
}

const voteTx = `{"transaction":{"message":{"accountKeys":[{"pubkey":"Vote111111111111111111111111111111111111111"}],"instructions":[{"programId":"Vote111111111111111111111111111111111111111"}]}}}`
const transferTx = `{"transaction":{"message":{"accountKeys":[{"pubkey":"A"},{"pubkey":"B"}],"instructions":[{"programId":"11111111111111111111111111111111"}]}}}`
const multiIxVoteTx = `{"transaction":{"message":{"accountKeys":[{"pubkey":"Vote111111111111111111111111111111111111111"},{"pubkey":"A"}],"instructions":[{"programId":"Vote111111111111111111111111111111111111111"},{"programId":"11111111111111111111111111111111"}]}}}`

func TestFilterVoteTransactions(t *testing.T) {
	block := makeBlock(voteTx, transferTx, multiIxVoteTx)
	out, err := FilterVoteTransactions(block)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result struct {
		Transactions []json.RawMessage `json:"transactions"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	// sole vote tx dropped; plain transfer kept; multi-instruction tx
	// containing a vote instruction is always kept.
	if len(result.Transactions) != 2 {
		t.Fatalf("expected 2 remaining transactions, got %d", len(result.Transactions))
	}
}

func TestProcessNoMinimization(t *testing.T) {
	block := makeBlock(voteTx)
	out, err := Process(block, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result struct {
		Transactions []json.RawMessage `json:"transactions"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if len(result.Transactions) != 1 {
		t.Fatalf("expected minimization disabled to keep the vote tx, got %d", len(result.Transactions))
	}
}
