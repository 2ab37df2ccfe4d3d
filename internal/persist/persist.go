// Package persist drains a source driver's BlockRecord channel into
// the repository, spilling any record that fails insertion to disk for
// later reimport.
package persist

import (
	"context"
	"log"
	"sync"

	"github.com/rangesecurity/sb-dl-go/internal/ingest"
	"github.com/rangesecurity/sb-dl-go/internal/spillstore"
)

// Repository is the subset of *repository.Repository the persistence
// loop needs.
type Repository interface {
	InsertBlock(ctx context.Context, rec ingest.BlockRecord) error
}

// Run reads records off sink until it's closed or ctx is cancelled. A
// semaphore sized threads bounds the number of concurrent inserts:
// each record acquires a permit, spawns an insert goroutine against
// the pooled connection, and releases the permit on completion.
// Checkpointing for resumability happens via the indexed-slots resume
// set computed at startup, not a running counter here, since source
// drivers emit blocks out of strict order. serviceName labels log
// lines only.
func Run(ctx context.Context, repo Repository, sink <-chan ingest.BlockRecord, failedBlocksDir string, serviceName string, threads int) error {
	if threads < 1 {
		threads = 1
	}
	sem := make(chan struct{}, threads)
	var wg sync.WaitGroup

	insert := func(rec ingest.BlockRecord) {
		defer wg.Done()
		defer func() { <-sem }()
		if err := repo.InsertBlock(ctx, rec); err != nil {
			log.Printf("[%s] insert failed for block(%d), spilling to disk: %v", serviceName, rec.SlotOrHeight(), err)
			if werr := spillstore.Write(failedBlocksDir, rec); werr != nil {
				log.Printf("[%s] failed to spill block(%d): %v", serviceName, rec.SlotOrHeight(), werr)
			}
		}
	}

	for {
		select {
		case rec, ok := <-sink:
			if !ok {
				wg.Wait()
				return nil
			}
			sem <- struct{}{}
			wg.Add(1)
			go insert(rec)
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		}
	}
}
