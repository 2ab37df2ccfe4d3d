package transferflow

import "testing"

func txFixture(innerJSON string) []byte {
	return []byte(`{
		"transactions": [
			{
				"transaction": {
					"signatures": ["sig1"],
					"message": {
						"accountKeys": [
							{"pubkey": "ACC0"},
							{"pubkey": "ACC1"},
							{"pubkey": "ACC2"}
						],
						"instructions": [` + innerJSON + `]
					}
				},
				"meta": {
					"preTokenBalances": [{"accountIndex": 1, "mint": "MINT_A", "owner": "OWN"}],
					"postTokenBalances": [],
					"innerInstructions": []
				}
			}
		]
	}`)
}

func TestUncheckedTransferImputation(t *testing.T) {
	block := txFixture(`{
		"programId": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
		"parsed": {"type": "transfer", "info": {"source": "ACC1", "destination": "ACC2", "amount": "100"}}
	}`)
	out, err := ExtractForTransaction(block, "sig1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(out.Transfers))
	}
	got := out.Transfers[0]
	want := Transfer{Sender: "ACC1", Recipient: "ACC2", Mint: "MINT_A", Amount: "100"}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestCheckedTransferPassthrough(t *testing.T) {
	block := txFixture(`{
		"programId": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
		"parsed": {"type": "transferChecked", "info": {"source": "A", "destination": "B", "mint": "M", "tokenAmount": {"amount": "42"}}}
	}`)
	out, err := ExtractForTransaction(block, "sig1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Transfer{Sender: "A", Recipient: "B", Mint: "M", Amount: "42"}
	if len(out.Transfers) != 1 || out.Transfers[0] != want {
		t.Fatalf("got %+v want %+v", out.Transfers, want)
	}
}

func TestNativeTransfer(t *testing.T) {
	block := txFixture(`{
		"programId": "11111111111111111111111111111111",
		"parsed": {"type": "transfer", "info": {"source": "X", "destination": "Y", "lamports": 1}}
	}`)
	out, err := ExtractForTransaction(block, "sig1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Transfer{Sender: "X", Recipient: "Y", Mint: NativeMint, Amount: "1"}
	if len(out.Transfers) != 1 || out.Transfers[0] != want {
		t.Fatalf("got %+v want %+v", out.Transfers, want)
	}
}

func TestUnrecognizedProgramSkipped(t *testing.T) {
	block := txFixture(`{
		"programId": "SomeOtherProgram11111111111111111111111111",
		"parsed": {"type": "whatever", "info": {}}
	}`)
	out, err := ExtractForTransaction(block, "sig1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Transfers) != 0 {
		t.Fatalf("expected no transfers, got %+v", out.Transfers)
	}
}

func TestOrderingAcrossOuterAndInner(t *testing.T) {
	block := []byte(`{
		"transactions": [
			{
				"transaction": {
					"signatures": ["sig1"],
					"message": {
						"accountKeys": [{"pubkey": "A"}, {"pubkey": "B"}, {"pubkey": "C"}],
						"instructions": [
							{"programId": "11111111111111111111111111111111", "parsed": {"type": "transfer", "info": {"source": "A", "destination": "B", "lamports": 5}}},
							{"programId": "SomeProgram", "parsed": {"type": "noop", "info": {}}}
						]
					}
				},
				"meta": {
					"preTokenBalances": [],
					"postTokenBalances": [],
					"innerInstructions": [
						{"index": 1, "instructions": [
							{"programId": "11111111111111111111111111111111", "parsed": {"type": "transfer", "info": {"source": "B", "destination": "C", "lamports": 7}}}
						]}
					]
				}
			}
		]
	}`)
	out, err := ExtractForTransaction(block, "sig1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %d: %+v", len(out.Transfers), out.Transfers)
	}
	if out.Transfers[0].Amount != "5" || out.Transfers[1].Amount != "7" {
		t.Fatalf("wrong order: %+v", out.Transfers)
	}
}
