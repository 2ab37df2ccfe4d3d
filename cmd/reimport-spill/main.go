// Command reimport-spill re-attempts insertion of every block spilled
// to the failed-blocks directory, deleting each file on successful
// insert.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/rangesecurity/sb-dl-go/internal/config"
	"github.com/rangesecurity/sb-dl-go/internal/ingest"
	"github.com/rangesecurity/sb-dl-go/internal/repository"
	"github.com/rangesecurity/sb-dl-go/internal/spillstore"
)

func main() {
	var (
		configPath  string
		tableNumber int
	)
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file")
	flag.IntVar(&tableNumber, "table", 1, "block table: 1 (primary) or 2 (secondary)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[reimport-spill] failed to load config: %v", err)
	}
	table, ok := ingest.ParseTable(tableNumber)
	if !ok {
		log.Fatalf("[reimport-spill] invalid -table value %d, must be 1 or 2", tableNumber)
	}

	repo, err := repository.NewRepository(cfg.DBURL, cfg.Threads)
	if err != nil {
		log.Fatalf("[reimport-spill] failed to connect to database: %v", err)
	}
	defer repo.Close()

	if err := spillstore.Reimport(context.Background(), cfg.FailedBlocksDir, repo, table); err != nil {
		log.Fatalf("[reimport-spill] reimport failed: %v", err)
	}
}
