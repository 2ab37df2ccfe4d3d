package repository

import (
	"context"
	"fmt"

	"github.com/rangesecurity/sb-dl-go/internal/ingest"
)

// ResumeSet computes the union of slot columns across both block
// tables, and across the primary repository and an optional remote
// mirror. The result is passed to source drivers as the set of slots
// to skip on startup.
//
// remote may be nil when no remote mirror is configured.
func ResumeSet(ctx context.Context, primary, remote *Repository) (map[uint64]struct{}, error) {
	out := make(map[uint64]struct{})
	repos := []*Repository{primary}
	if remote != nil {
		repos = append(repos, remote)
	}
	for _, repo := range repos {
		for _, table := range []ingest.Table{ingest.TablePrimary, ingest.TableSecondary} {
			slots, err := repo.IndexedSlots(ctx, table)
			if err != nil {
				return nil, fmt.Errorf("repository: failed to union resume set: %w", err)
			}
			for _, s := range slots {
				out[s] = struct{}{}
			}
		}
	}
	return out, nil
}
