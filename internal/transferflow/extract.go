package transferflow

import (
	"encoding/json"
	"fmt"
	"sort"
)

// rawAccountKey accepts both the parsed-message object shape
// ({pubkey, signer, writable}) and the raw/legacy bare-string shape.
type rawAccountKey struct {
	Pubkey string
}

func (a *rawAccountKey) UnmarshalJSON(data []byte) error {
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

type rawTokenBalance struct {
	AccountIndex uint8  `json:"accountIndex"`
	Mint         string `json:"mint"`
	Owner        string `json:"owner"`
}

type rawInnerInstructionSet struct {
	Index        int               `json:"index"`
	Instructions []json.RawMessage `json:"instructions"`
}

type rawMeta struct {
	PreTokenBalances  []rawTokenBalance         `json:"preTokenBalances"`
	PostTokenBalances []rawTokenBalance         `json:"postTokenBalances"`
	InnerInstructions []rawInnerInstructionSet  `json:"innerInstructions"`
}

type rawMessage struct {
	AccountKeys  []rawAccountKey   `json:"accountKeys"`
	Instructions []json.RawMessage `json:"instructions"`
}

type rawTransactionEnvelope struct {
	Signatures []string   `json:"signatures"`
	Message    rawMessage `json:"message"`
}

type rawTransactionEntry struct {
	Transaction rawTransactionEnvelope `json:"transaction"`
	Meta        rawMeta                `json:"meta"`
}

// TransferTree is the assembled ordered structure: outer_index ->
// (outer transfer if decoded, inner_index -> [inner transfers]).
type TransferTree map[uint8]*TreeEntry

type TreeEntry struct {
	Outer *Transfer
	Inner map[uint8][]Transfer
}

// ExtractBlock runs ExtractForTransaction over every transaction in a
// canonicalized block body and returns one OrderedTransfers per
// transaction, in block order.
func ExtractBlock(blockJSON []byte) ([]OrderedTransfers, error) {
	var block struct {
		Transactions []rawTransactionEntry `json:"transactions"`
	}
	if err := json.Unmarshal(blockJSON, &block); err != nil {
		return nil, fmt.Errorf("transferflow: failed to parse block: %w", err)
	}
	out := make([]OrderedTransfers, 0, len(block.Transactions))
	for _, entry := range block.Transactions {
		txHash := ""
		if len(entry.Transaction.Signatures) > 0 {
			txHash = entry.Transaction.Signatures[0]
		}
		transfers, err := extractTransfers(entry)
		if err != nil {
			// A single undecodable transaction must not fail the
			// whole block; skip it and continue, matching the
			// pipeline's "never fatal on a per-item basis" disposition.
			continue
		}
		out = append(out, OrderedTransfers{TxHash: txHash, Transfers: transfers})
	}
	return out, nil
}

// ExtractForTransaction finds the transaction matching txHash inside
// blockJSON and returns its ordered transfer list: the single-tx
// counterpart of ExtractBlock. The query surface serves whole blocks
// only and does not call it.
func ExtractForTransaction(blockJSON []byte, txHash string) (OrderedTransfers, error) {
	var block struct {
		Transactions []rawTransactionEntry `json:"transactions"`
	}
	if err := json.Unmarshal(blockJSON, &block); err != nil {
		return OrderedTransfers{}, fmt.Errorf("transferflow: failed to parse block: %w", err)
	}
	for _, entry := range block.Transactions {
		if len(entry.Transaction.Signatures) == 0 || entry.Transaction.Signatures[0] != txHash {
			continue
		}
		transfers, err := extractTransfers(entry)
		if err != nil {
			return OrderedTransfers{}, err
		}
		return OrderedTransfers{TxHash: txHash, Transfers: transfers}, nil
	}
	return OrderedTransfers{}, fmt.Errorf("transferflow: transaction %s not found in block", txHash)
}

// extractTransfers implements the per-transaction extraction algorithm.
func extractTransfers(entry rawTransactionEntry) ([]Transfer, error) {
	msg := entry.Transaction.Message

	// Step 1: build token_owner_by_index, merging pre- and
	// post-balance lists keyed by account_index. owner may be empty
	// for pre-Token-2022 blocks and must tolerate that (no error).
	ownerByIndex := make(map[uint8]TokenOwnerInfo)
	for _, b := range entry.Meta.PreTokenBalances {
		ownerByIndex[b.AccountIndex] = TokenOwnerInfo{Mint: b.Mint, Owner: b.Owner, AccountIndex: b.AccountIndex}
	}
	for _, b := range entry.Meta.PostTokenBalances {
		if existing, ok := ownerByIndex[b.AccountIndex]; ok && existing.Mint != "" {
			continue
		}
		ownerByIndex[b.AccountIndex] = TokenOwnerInfo{Mint: b.Mint, Owner: b.Owner, AccountIndex: b.AccountIndex}
	}

	// Step 2: build mint_by_account_pubkey.
	mintByPubkey := make(map[string]string)
	for i, key := range msg.AccountKeys {
		if info, ok := ownerByIndex[uint8(i)]; ok {
			mintByPubkey[key.Pubkey] = info.Mint
		}
	}

	tree := make(TransferTree)

	// Decode outer instructions, keyed by a 1-based index (idx+1) so
	// the zero value of the map can't collide with a real entry.
	for i, raw := range msg.Instructions {
		decoded, err := DecodeInstruction(raw)
		if err != nil || decoded == nil {
			continue
		}
		if src, ok := decoded.sourceAccount(); ok {
			if mint, ok := mintByPubkey[src]; ok {
				decoded.imputeMint(mint)
			}
		}
		outerIdx := uint8(i + 1)
		transfer := decoded.ToTransfer()
		entryNode := tree[outerIdx]
		if entryNode == nil {
			entryNode = &TreeEntry{Inner: make(map[uint8][]Transfer)}
			tree[outerIdx] = entryNode
		}
		entryNode.Outer = &transfer
	}

	// Step 5: decode inner instructions, associated with their parent
	// outer index. meta.innerInstructions' `index` field is the
	// 0-based position of the parent outer instruction; +1 to match
	// the 1-based key used above.
	for _, inner := range entry.Meta.InnerInstructions {
		outerIdx := uint8(inner.Index + 1)
		for _, raw := range inner.Instructions {
			decoded, err := DecodeInstruction(raw)
			if err != nil || decoded == nil {
				continue
			}
			if src, ok := decoded.sourceAccount(); ok {
				if mint, ok := mintByPubkey[src]; ok {
					decoded.imputeMint(mint)
				}
			}
			transfer := decoded.ToTransfer()
			entryNode := tree[outerIdx]
			if entryNode == nil {
				entryNode = &TreeEntry{Inner: make(map[uint8][]Transfer)}
				tree[outerIdx] = entryNode
			}
			// Sub-position within this outer's inner list; Solana
			// does not expose a second-level index for inner
			// instructions beyond their arrival order, so they are
			// appended in the order the node reported them.
			entryNode.Inner[0] = append(entryNode.Inner[0], transfer)
		}
	}

	// Step 7: flatten to a list in strict order: ascending outer
	// index, outer transfer (if any) before inner transfers.
	outerIndices := make([]uint8, 0, len(tree))
	for idx := range tree {
		outerIndices = append(outerIndices, idx)
	}
	sort.Slice(outerIndices, func(i, j int) bool { return outerIndices[i] < outerIndices[j] })

	transfers := make([]Transfer, 0)
	for _, idx := range outerIndices {
		node := tree[idx]
		if node.Outer != nil {
			transfers = append(transfers, *node.Outer)
		}
		innerKeys := make([]uint8, 0, len(node.Inner))
		for k := range node.Inner {
			innerKeys = append(innerKeys, k)
		}
		sort.Slice(innerKeys, func(i, j int) bool { return innerKeys[i] < innerKeys[j] })
		for _, k := range innerKeys {
			transfers = append(transfers, node.Inner[k]...)
		}
	}
	return transfers, nil
}
