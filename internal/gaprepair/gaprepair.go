// Package gaprepair locates a contiguous missing range of block
// numbers and guesses the slot sequence to recover it.
package gaprepair

import (
	"context"
	"log"
	"time"

	"github.com/rangesecurity/sb-dl-go/internal/ingest"
)

// GapFinder is the subset of the repository surface gap repair needs.
type GapFinder interface {
	FindGapEnd(ctx context.Context, table ingest.Table, startingNumber int64) (int64, error)
	SelectBlockByNumber(ctx context.Context, table ingest.Table, number int64) (slot *uint64, found bool, err error)
}

// BlockGetter is the backfill client's single-block lookup, used to
// probe candidate slots.
type BlockGetter interface {
	GetBlock(ctx context.Context, slot uint64) (payload []byte, ok bool, err error)
}

// Run walks the missing range:
//  1. Find gapEnd via FindGapEnd(startingNumber).
//  2. For each missing in [startingNumber-1, gapEnd):
//     a. look up missing-1 (the last present block before the gap).
//     b. seed candidate_slot = present.slot + 1.
//     c. loop the RPC for candidate_slot until it succeeds; emit it;
//        otherwise increment and retry.
//  3. Sleep 10s between gap entries.
//
// The lower bound startingNumber-1 intentionally re-inspects the block
// immediately preceding the gap; this is harmless because persistence
// is idempotent by block_number, and is kept as-is rather than
// adjusted to startingNumber.
func Run(ctx context.Context, repo GapFinder, getter BlockGetter, sink chan<- ingest.BlockRecord, table ingest.Table, startingNumber int64) error {
	gapEnd, err := repo.FindGapEnd(ctx, table, startingNumber)
	if err != nil {
		return err
	}

	for missing := startingNumber - 1; missing < gapEnd; missing++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slot, found, err := repo.SelectBlockByNumber(ctx, table, missing-1)
		if err != nil {
			log.Printf("[gaprepair] failed to select block(%d): %v", missing-1, err)
			continue
		}
		if !found || slot == nil {
			continue
		}
		log.Printf("[gaprepair] guessing_slot(block=%d, slot=%d)", missing-1, *slot)

		candidate := *slot + 1
		for {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			payload, ok, err := getter.GetBlock(ctx, candidate)
			if err != nil || !ok {
				candidate++
				continue
			}
			log.Printf("[gaprepair] found missing block(slot=%d)", candidate)
			height, blockTime := extractHeightAndTime(payload)
			rec := ingest.BlockRecord{
				Slot:        &candidate,
				BlockHeight: height,
				BlockTime:   blockTime,
				Payload:     payload,
				Table:       table,
			}
			select {
			case sink <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
			break
		}

		select {
		case <-time.After(10 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func extractHeightAndTime(payload []byte) (uint64, *int64) {
	type meta struct {
		BlockHeight *uint64 `json:"blockHeight"`
		BlockTime   *int64  `json:"blockTime"`
	}
	var m meta
	if err := unmarshal(payload, &m); err != nil || m.BlockHeight == nil {
		return 0, nil
	}
	return *m.BlockHeight, m.BlockTime
}
