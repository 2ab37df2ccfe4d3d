// Command backfiller runs a periodic on-demand JSON-RPC sweep over the
// most recent 300 slots, intentionally overlapping a live subscriber's
// coverage since insertion is idempotent.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/rangesecurity/sb-dl-go/internal/config"
	"github.com/rangesecurity/sb-dl-go/internal/ingest"
	"github.com/rangesecurity/sb-dl-go/internal/persist"
	"github.com/rangesecurity/sb-dl-go/internal/repository"
	"github.com/rangesecurity/sb-dl-go/internal/rpcsrc"
)

func main() {
	var (
		configPath  string
		tableNumber int
	)
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file")
	flag.IntVar(&tableNumber, "table", 0, "block table: 1 (primary) or 2 (secondary), defaults to config block_table_choice")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[backfiller] failed to load config: %v", err)
	}
	if tableNumber == 0 {
		tableNumber = cfg.BlockTableChoice
	}
	table, ok := ingest.ParseTable(tableNumber)
	if !ok {
		table = ingest.TablePrimary
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewRepository(cfg.DBURL, cfg.Threads)
	if err != nil {
		log.Fatalf("[backfiller] failed to connect to database: %v", err)
	}
	defer repo.Close()

	var remote *repository.Repository
	if cfg.RemoteDBURL != "" {
		remote, err = repository.NewRepository(cfg.RemoteDBURL, cfg.Threads)
		if err != nil {
			log.Fatalf("[backfiller] failed to connect to remote mirror: %v", err)
		}
		defer remote.Close()
	}

	alreadyIndexed, err := repository.ResumeSet(ctx, repo, remote)
	if err != nil {
		log.Fatalf("[backfiller] failed to load indexed slots: %v", err)
	}

	backfiller, err := rpcsrc.NewBackfiller(cfg.RPCURL)
	if err != nil {
		log.Fatalf("[backfiller] failed to dial %s: %v", cfg.RPCURL, err)
	}

	sink := make(chan ingest.BlockRecord, 300)
	go func() {
		defer close(sink)
		if err := backfiller.Start(ctx, sink, cfg.NoMinimization, table, alreadyIndexed); err != nil {
			log.Printf("[backfiller] backfill loop ended: %v", err)
		}
	}()

	if err := persist.Run(ctx, repo, sink, cfg.FailedBlocksDir, "backfiller", cfg.Threads); err != nil {
		log.Printf("[backfiller] persistence loop ended: %v", err)
	}
}
