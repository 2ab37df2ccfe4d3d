// Command gap-repair finds a contiguous missing range of block numbers
// and probes the RPC backfill client forward, slot by slot, to
// recover it.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/rangesecurity/sb-dl-go/internal/config"
	"github.com/rangesecurity/sb-dl-go/internal/gaprepair"
	"github.com/rangesecurity/sb-dl-go/internal/ingest"
	"github.com/rangesecurity/sb-dl-go/internal/persist"
	"github.com/rangesecurity/sb-dl-go/internal/repository"
	"github.com/rangesecurity/sb-dl-go/internal/rpcsrc"
)

func main() {
	var (
		configPath     string
		startingNumber int64
		tableNumber    int
	)
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file")
	flag.Int64Var(&startingNumber, "starting-block", 0, "block number immediately before the gap")
	flag.IntVar(&tableNumber, "table", 1, "block table: 1 (primary) or 2 (secondary)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[gap-repair] failed to load config: %v", err)
	}
	table, ok := ingest.ParseTable(tableNumber)
	if !ok {
		log.Fatalf("[gap-repair] invalid -table value %d, must be 1 or 2", tableNumber)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewRepository(cfg.DBURL, cfg.Threads)
	if err != nil {
		log.Fatalf("[gap-repair] failed to connect to database: %v", err)
	}
	defer repo.Close()

	backfiller, err := rpcsrc.NewBackfiller(cfg.RPCURL)
	if err != nil {
		log.Fatalf("[gap-repair] failed to dial %s: %v", cfg.RPCURL, err)
	}

	sink := make(chan ingest.BlockRecord, 16)
	go func() {
		defer close(sink)
		if err := gaprepair.Run(ctx, repo, backfiller, sink, table, startingNumber); err != nil {
			log.Printf("[gap-repair] repair loop ended: %v", err)
		}
	}()

	if err := persist.Run(ctx, repo, sink, cfg.FailedBlocksDir, "gap-repair", cfg.Threads); err != nil {
		log.Printf("[gap-repair] persistence loop ended: %v", err)
	}
}
