package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rangesecurity/sb-dl-go/internal/ingest"
	"github.com/rangesecurity/sb-dl-go/internal/repository"
)

type fakeRepo struct {
	rows map[int64][]repository.BlockRow
}

func (f *fakeRepo) SelectBlock(ctx context.Context, table ingest.Table, filter repository.BlockFilter) ([]repository.BlockRow, error) {
	if filter.Number == nil {
		return nil, nil
	}
	return f.rows[*filter.Number], nil
}

const fixtureBlock = `{
	"transactions": [{
		"transaction": {
			"signatures": ["sig1"],
			"message": {
				"accountKeys": ["alice", "bob"],
				"instructions": [{
					"programId": "11111111111111111111111111111111",
					"parsed": {"type": "transfer", "info": {"source": "alice", "destination": "bob", "lamports": 100}}
				}]
			}
		},
		"meta": {"preTokenBalances": [], "postTokenBalances": [], "innerInstructions": []}
	}]
}`

func TestHandleOrderedTransfersSuccess(t *testing.T) {
	slot := uint64(500)
	repo := &fakeRepo{rows: map[int64][]repository.BlockRow{
		1000: {{BlockNumber: 1000, Slot: &slot, Data: []byte(fixtureBlock)}},
	}}
	s := NewServer(repo)

	req := httptest.NewRequest(http.MethodGet, "/orderedTransfers/1000/1", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp orderedTransfersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Slot == nil || *resp.Slot != 500 {
		t.Fatalf("expected slot 500, got %+v", resp.Slot)
	}
	if len(resp.Transfers) != 1 || len(resp.Transfers[0].Transfers) != 1 {
		t.Fatalf("expected one transfer, got %+v", resp.Transfers)
	}
}

func TestHandleOrderedTransfersNotFound(t *testing.T) {
	repo := &fakeRepo{rows: map[int64][]repository.BlockRow{}}
	s := NewServer(repo)

	req := httptest.NewRequest(http.MethodGet, "/orderedTransfers/1000/1", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleOrderedTransfersBadTableNumber(t *testing.T) {
	repo := &fakeRepo{rows: map[int64][]repository.BlockRow{}}
	s := NewServer(repo)

	req := httptest.NewRequest(http.MethodGet, "/orderedTransfers/1000/9", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
