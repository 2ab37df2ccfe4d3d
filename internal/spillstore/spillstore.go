// Package spillstore is the file-based holding area for blocks the
// database rejected even after sanitization.
package spillstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/rangesecurity/sb-dl-go/internal/ingest"
	"github.com/rangesecurity/sb-dl-go/internal/sanitize"
)

var filenamePattern = regexp.MustCompile(`^block_(\d+)\.json$`)

// Inserter is the subset of the repository surface the re-importer
// needs; kept narrow so spillstore does not depend on the repository
// package's connection lifecycle.
type Inserter interface {
	InsertBlock(ctx context.Context, rec ingest.BlockRecord) error
}

// Write persists rec to {dir}/block_{N}.json, using slot when
// present, otherwise block height. The payload written is the
// sanitized copy — sanitization never mutates rec in place; a new
// value is written to disk.
func Write(dir string, rec ingest.BlockRecord) error {
	cleaned, err := sanitize.Document(rec.Payload)
	if err != nil {
		// Even the spill path must not crash on a malformed payload;
		// fall back to the raw bytes so at least something is kept.
		cleaned = rec.Payload
	}
	path := filepath.Join(dir, fmt.Sprintf("block_%d.json", rec.SlotOrHeight()))
	if err := os.WriteFile(path, cleaned, 0o644); err != nil {
		return fmt.Errorf("spillstore: failed to write %s: %w", path, err)
	}
	log.Printf("[spillstore] block(%d) persisted to %s", rec.SlotOrHeight(), path)
	return nil
}

// Reimport enumerates dir for files matching block_(\d+).json, and
// for each, re-sanitizes and re-inserts the record into ins. On
// success the spill file is deleted. This performs exactly one pass
// over the directory; it deliberately does not retry forever, so
// re-running the tool is what drives further progress.
func Reimport(ctx context.Context, dir string, ins Inserter, table ingest.Table) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("spillstore: failed to read %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := filenamePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		slotOrHeight, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("[spillstore] failed to read %s: %v", path, err)
			continue
		}

		var meta struct {
			BlockHeight *uint64 `json:"blockHeight"`
		}
		if err := json.Unmarshal(data, &meta); err != nil || meta.BlockHeight == nil {
			log.Printf("[spillstore] failed to determine block height for %s: %v", path, err)
			continue
		}

		slot := slotOrHeight
		rec := ingest.BlockRecord{
			Slot:        &slot,
			BlockHeight: *meta.BlockHeight,
			Payload:     data,
			Table:       table,
		}
		if err := ins.InsertBlock(ctx, rec); err != nil {
			log.Printf("[spillstore] re-import failed for %s: %v", path, err)
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Printf("[spillstore] failed to remove %s after successful re-import: %v", path, err)
		}
	}
	return nil
}
