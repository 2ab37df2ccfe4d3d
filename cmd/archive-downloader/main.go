// Command archive-downloader runs a bounded-parallelism fan-out over a
// slot range, backed by the Bigtable-resident historical ledger.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"cloud.google.com/go/bigtable"

	"github.com/rangesecurity/sb-dl-go/internal/archive"
	"github.com/rangesecurity/sb-dl-go/internal/config"
	"github.com/rangesecurity/sb-dl-go/internal/ingest"
	"github.com/rangesecurity/sb-dl-go/internal/persist"
	"github.com/rangesecurity/sb-dl-go/internal/repository"
)

func main() {
	var (
		configPath  string
		startSlot   uint64
		limit       uint64
		parallelism int
		tableNumber int
	)
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file")
	flag.Uint64Var(&startSlot, "start", 0, "first slot to fetch")
	flag.Uint64Var(&limit, "limit", 0, "number of slots to fetch (0 = unbounded)")
	flag.IntVar(&parallelism, "parallelism", 0, "fetch concurrency, defaults to config threads")
	flag.IntVar(&tableNumber, "table", 0, "block table: 1 (primary) or 2 (secondary), defaults to config block_table_choice")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[archive-downloader] failed to load config: %v", err)
	}
	if tableNumber == 0 {
		tableNumber = cfg.BlockTableChoice
	}
	table, ok := ingest.ParseTable(tableNumber)
	if !ok {
		table = ingest.TablePrimary
	}
	if parallelism <= 0 {
		parallelism = cfg.Threads
	}
	if parallelism <= 0 {
		parallelism = 4
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewRepository(cfg.DBURL, cfg.Threads)
	if err != nil {
		log.Fatalf("[archive-downloader] failed to connect to database: %v", err)
	}
	defer repo.Close()

	var remote *repository.Repository
	if cfg.RemoteDBURL != "" {
		remote, err = repository.NewRepository(cfg.RemoteDBURL, cfg.Threads)
		if err != nil {
			log.Fatalf("[archive-downloader] failed to connect to remote mirror: %v", err)
		}
		defer remote.Close()
	}

	btClient, err := bigtable.NewClient(ctx, cfg.Bigtable.ProjectID, cfg.Bigtable.InstanceName)
	if err != nil {
		log.Fatalf("[archive-downloader] failed to connect to bigtable: %v", err)
	}
	fetcher := archive.NewBigtableFetcher(btClient, "blocks")

	alreadyIndexed, err := repository.ResumeSet(ctx, repo, remote)
	if err != nil {
		log.Fatalf("[archive-downloader] failed to load indexed slots: %v", err)
	}

	sink := make(chan ingest.BlockRecord, parallelism*4)
	cancel := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(cancel)
	}()

	downloader := archive.NewDownloader(fetcher)
	go func() {
		defer close(sink)
		if err := downloader.Start(ctx, sink, alreadyIndexed, startSlot, limit, cfg.NoMinimization, parallelism, cancel, table); err != nil {
			log.Printf("[archive-downloader] fetch loop ended: %v", err)
		}
	}()

	if err := persist.Run(ctx, repo, sink, cfg.FailedBlocksDir, "archive-downloader", cfg.Threads); err != nil {
		log.Printf("[archive-downloader] persistence loop ended: %v", err)
	}
}
