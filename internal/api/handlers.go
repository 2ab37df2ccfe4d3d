package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/rangesecurity/sb-dl-go/internal/ingest"
	"github.com/rangesecurity/sb-dl-go/internal/repository"
	"github.com/rangesecurity/sb-dl-go/internal/transferflow"
)

// orderedTransfersResponse is the response shape:
// {transfers: [...], slot, time}.
type orderedTransfersResponse struct {
	Transfers []transferflow.OrderedTransfers `json:"transfers"`
	Slot      *uint64                         `json:"slot"`
	Time      *int64                          `json:"time"`
}

// orderedTransfersTTL is how long a successfully-served
// orderedTransfers body is cached. An indexed block's row is inserted
// exactly once (InsertBlock is insert-or-ignore, never an update), so
// once a (table, blockNumber) pair has served a 200 its body can never
// legitimately change; the TTL only exists to bound memory, not to
// catch staleness.
const orderedTransfersTTL = 1 * time.Hour

// orderedTransfersCache caches successful responses keyed on the
// (table, blockNumber) pair the request actually asked for, rather
// than the raw request URL: tableNumber and blockNumber are the only
// two inputs that affect the response, so keying on them directly
// avoids cache misses on equivalent requests with different query
// strings and avoids ever caching an error response by construction.
// One instance lives per Server rather than as a package-level
// singleton, so two servers (or two test cases) never share entries.
type orderedTransfersCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	body      []byte
	expiresAt time.Time
}

func newOrderedTransfersCache() *orderedTransfersCache {
	return &orderedTransfersCache{entries: make(map[string]cacheEntry)}
}

func cacheKey(table ingest.Table, blockNumber int64) string {
	return table.String() + ":" + strconv.FormatInt(blockNumber, 10)
}

func (c *orderedTransfersCache) get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.body, true
}

func (c *orderedTransfersCache) set(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{body: body, expiresAt: time.Now().Add(orderedTransfersTTL)}
}

// handleOrderedTransfers serves GET /orderedTransfers/{blockNumber}/{tableNumber}.
// Status codes: 400 for a malformed path parameter, 404 if the block
// has not been indexed, 500 on a decode or extraction failure, 200
// with the transfer tree otherwise. Only the 200 case is cached: a 404
// may flip to a 200 moments later as ingestion catches up, so caching
// it would serve a stale "not indexed" past the point the block
// actually lands.
func (s *Server) handleOrderedTransfers(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	blockNumber, err := strconv.ParseInt(vars["blockNumber"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "blockNumber must be an integer")
		return
	}
	tableNumber, err := strconv.Atoi(vars["tableNumber"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "tableNumber must be an integer")
		return
	}
	table, ok := ingest.ParseTable(tableNumber)
	if !ok {
		writeError(w, http.StatusBadRequest, "tableNumber must be 1 (primary) or 2 (secondary)")
		return
	}

	key := cacheKey(table, blockNumber)
	if body, ok := s.cache.get(key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		w.Write(body)
		return
	}

	rows, err := s.repo.SelectBlock(r.Context(), table, repository.BlockFilter{Number: &blockNumber})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load block")
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusNotFound, "block not indexed")
		return
	}
	row := rows[0]

	transfers, err := transferflow.ExtractBlock(row.Data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to extract transfer flow")
		return
	}

	var blockTime *int64
	if row.Time != nil {
		t := row.Time.Unix()
		blockTime = &t
	}

	body, err := json.Marshal(orderedTransfersResponse{
		Transfers: transfers,
		Slot:      row.Slot,
		Time:      blockTime,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	s.cache.set(key, body)

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
