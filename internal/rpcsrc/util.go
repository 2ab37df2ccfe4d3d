package rpcsrc

import "encoding/json"

func marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// extractHeightAndTime reads blockHeight/blockTime back out of an
// already-canonicalized block payload, so the caller can populate
// BlockRecord without re-decoding the whole transaction list.
func extractHeightAndTime(payload []byte) (height uint64, blockTime *int64) {
	var meta struct {
		BlockHeight *uint64 `json:"blockHeight"`
		BlockTime   *int64  `json:"blockTime"`
	}
	if err := json.Unmarshal(payload, &meta); err != nil {
		return 0, nil
	}
	if meta.BlockHeight != nil {
		height = *meta.BlockHeight
	}
	return height, meta.BlockTime
}
