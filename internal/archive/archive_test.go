package archive

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/rangesecurity/sb-dl-go/internal/ingest"
)

type fakeFetcher struct {
	mu      sync.Mutex
	present map[uint64]bool
}

func (f *fakeFetcher) FetchBlock(ctx context.Context, slot uint64) ([]byte, uint64, *int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.present[slot] {
		return nil, 0, nil, false, nil
	}
	payload := []byte(`{"blockHeight": ` + strconv.FormatUint(slot, 10) + `, "transactions": []}`)
	return payload, slot, nil, true, nil
}

func TestStartSkipsAlreadyIndexedAndMissingSlots(t *testing.T) {
	fetcher := &fakeFetcher{present: map[uint64]bool{10: true, 12: true}}
	d := NewDownloader(fetcher)

	sink := make(chan ingest.BlockRecord, 10)
	cancel := make(chan struct{})
	alreadyIndexed := map[uint64]struct{}{12: {}}

	if err := d.Start(context.Background(), sink, alreadyIndexed, 10, 5, true, 4, cancel, ingest.TablePrimary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(sink)

	var got []ingest.BlockRecord
	for rec := range sink {
		got = append(got, rec)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record (slot 10 only; 11 missing, 12 already indexed), got %d", len(got))
	}
	if *got[0].Slot != 10 {
		t.Fatalf("expected slot 10, got %d", *got[0].Slot)
	}
}
