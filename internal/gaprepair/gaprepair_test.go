package gaprepair

import (
	"context"
	"testing"
	"time"

	"github.com/rangesecurity/sb-dl-go/internal/ingest"
)

type fakeFinder struct {
	gapEnd       int64
	slotByNumber map[int64]uint64
}

func (f *fakeFinder) FindGapEnd(ctx context.Context, table ingest.Table, startingNumber int64) (int64, error) {
	return f.gapEnd, nil
}

func (f *fakeFinder) SelectBlockByNumber(ctx context.Context, table ingest.Table, number int64) (*uint64, bool, error) {
	slot, ok := f.slotByNumber[number]
	if !ok {
		return nil, false, nil
	}
	return &slot, true, nil
}

type fakeGetter struct {
	validSlots map[uint64]bool
}

func (g *fakeGetter) GetBlock(ctx context.Context, slot uint64) ([]byte, bool, error) {
	if !g.validSlots[slot] {
		return nil, false, nil
	}
	return []byte(`{"blockHeight": 15, "transactions": []}`), true, nil
}

// TestRunSkipsWhenPredecessorMissing exercises the fast path: no present
// block immediately precedes the gap entry, so Run moves on without
// sleeping and returns once it has walked the whole [starting-1, gapEnd)
// range.
func TestRunSkipsWhenPredecessorMissing(t *testing.T) {
	finder := &fakeFinder{gapEnd: 11, slotByNumber: map[int64]uint64{}}
	getter := &fakeGetter{validSlots: map[uint64]bool{}}

	sink := make(chan ingest.BlockRecord, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, finder, getter, sink, ingest.TablePrimary, 11) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("Run did not return promptly when no predecessor block was present")
	}
	select {
	case <-sink:
		t.Fatalf("expected no record to be emitted")
	default:
	}
}

// TestRunFindsNextValidSlot exercises the guessing loop: a present block
// precedes the gap, and Run must probe forward until it finds a valid
// slot and emit it on sink, before its post-entry sleep is cut short by
// context cancellation.
func TestRunFindsNextValidSlot(t *testing.T) {
	finder := &fakeFinder{gapEnd: 12, slotByNumber: map[int64]uint64{10: 100}}
	getter := &fakeGetter{validSlots: map[uint64]bool{103: true}}

	sink := make(chan ingest.BlockRecord, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, finder, getter, sink, ingest.TablePrimary, 12) }()

	select {
	case rec := <-sink:
		if rec.Slot == nil || *rec.Slot != 103 {
			t.Fatalf("expected slot 103, got %+v", rec)
		}
	case err := <-done:
		t.Fatalf("Run returned before emitting a record: %v", err)
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for a record on sink")
	}

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected context deadline error once the post-entry sleep was cut short")
		}
	case <-time.After(1 * time.Second):
		t.Fatalf("Run did not observe context cancellation during its post-entry sleep")
	}
}
