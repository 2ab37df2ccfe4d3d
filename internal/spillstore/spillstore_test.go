package spillstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rangesecurity/sb-dl-go/internal/ingest"
)

type fakeInserter struct {
	inserted []ingest.BlockRecord
}

func (f *fakeInserter) InsertBlock(ctx context.Context, rec ingest.BlockRecord) error {
	f.inserted = append(f.inserted, rec)
	return nil
}

func TestWriteAndReimportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	slot := uint64(777)
	rec := ingest.BlockRecord{
		Slot:        &slot,
		BlockHeight: 700,
		Payload:     []byte(`{"blockHeight": 700, "transactions": []}`),
		Table:       ingest.TablePrimary,
	}
	if err := Write(dir, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(dir, "block_777.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected spill file to exist: %v", err)
	}

	ins := &fakeInserter{}
	if err := Reimport(context.Background(), dir, ins, ingest.TablePrimary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ins.inserted) != 1 {
		t.Fatalf("expected 1 re-imported record, got %d", len(ins.inserted))
	}
	if ins.inserted[0].BlockHeight != 700 {
		t.Fatalf("expected block height 700, got %d", ins.inserted[0].BlockHeight)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected spill file to be removed after successful re-import")
	}
}
