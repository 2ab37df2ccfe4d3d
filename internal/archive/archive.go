// Package archive implements a historical, Bigtable-backed source
// driver. Raw Bigtable cell decoding is treated as an external black
// box (FetchBlock(slot) -> ConfirmedBlock | NotFound | Error); this
// package owns only the bounded-parallelism fan-out, cancellation, and
// canonicalization wiring around that black box.
package archive

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/rangesecurity/sb-dl-go/internal/canon"
	"github.com/rangesecurity/sb-dl-go/internal/ingest"
)

// BlockFetcher is the black-box archive backend: given a slot, it
// returns the raw confirmed block body, ok=false when the slot has no
// block (a skipped Solana slot, not an error), or an error for genuine
// transport/decode failures. Canonicalization happens separately, in
// canon.Process.
type BlockFetcher interface {
	FetchBlock(ctx context.Context, slot uint64) (payload []byte, blockHeight uint64, blockTime *int64, ok bool, err error)
}

// Downloader drives the archive backend across a range of slots with
// bounded parallelism.
type Downloader struct {
	fetcher BlockFetcher
}

func NewDownloader(fetcher BlockFetcher) *Downloader {
	return &Downloader{fetcher: fetcher}
}

// Start iterates [startSlot, startSlot+limit), skipping any slot in
// alreadyIndexed, issuing up to parallelism concurrent FetchBlock
// calls. cancel is a one-shot channel: closing it stops new fetches
// from being issued, though in-flight fetches are allowed to
// complete or are abandoned when sink's consumer stops draining.
func (d *Downloader) Start(
	ctx context.Context,
	sink chan<- ingest.BlockRecord,
	alreadyIndexed map[uint64]struct{},
	startSlot uint64,
	limit uint64,
	noMinimization bool,
	parallelism int,
	cancel <-chan struct{},
	table ingest.Table,
) error {
	if limit == 0 {
		limit = ^uint64(0) - startSlot
	}

	var toFetch []uint64
	for slot := startSlot; slot < startSlot+limit; slot++ {
		if _, skip := alreadyIndexed[slot]; skip {
			continue
		}
		toFetch = append(toFetch, slot)
	}

	return d.FetchBlocks(ctx, sink, toFetch, noMinimization, parallelism, cancel, table)
}

// FetchBlocks fetches an explicit list of slots, for callers that
// already know exactly which slots they need (backfill, gap repair)
// rather than a contiguous range.
func (d *Downloader) FetchBlocks(
	ctx context.Context,
	sink chan<- ingest.BlockRecord,
	slots []uint64,
	noMinimization bool,
	parallelism int,
	cancel <-chan struct{},
	table ingest.Table,
) error {
	if parallelism < 1 {
		parallelism = 1
	}

	var exited atomic.Bool
	go func() {
		<-cancel
		exited.Store(true)
	}()

	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup

	for _, slot := range slots {
		if exited.Load() {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(slot uint64) {
			defer wg.Done()
			defer func() { <-sem }()
			if exited.Load() {
				return
			}
			d.fetchOne(ctx, sink, slot, noMinimization, table)
		}(slot)
	}
	wg.Wait()
	return nil
}

func (d *Downloader) fetchOne(ctx context.Context, sink chan<- ingest.BlockRecord, slot uint64, noMinimization bool, table ingest.Table) {
	payload, blockHeight, blockTime, ok, err := d.fetcher.FetchBlock(ctx, slot)
	if err != nil {
		log.Printf("[archive] failed to fetch block(slot=%d): %v", slot, err)
		return
	}
	if !ok {
		// Missing blocks are silently skipped: slots are not
		// contiguous in Solana.
		return
	}
	canonical, err := canon.Process(payload, noMinimization)
	if err != nil {
		log.Printf("[archive] failed to canonicalize block(slot=%d): %v", slot, err)
		return
	}

	rec := ingest.BlockRecord{
		Slot:        &slot,
		BlockHeight: blockHeight,
		BlockTime:   blockTime,
		Payload:     canonical,
		Table:       table,
	}
	select {
	case sink <- rec:
	case <-ctx.Done():
	}
}
