// Command stream-subscriber runs a long-lived gRPC subscription that
// pushes finalized blocks as they are produced. The caller (this
// process, restarted by its process supervisor) owns reconnection;
// Run returns on the first transport error rather than retrying
// internally.
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
	"github.com/rangesecurity/sb-dl-go/internal/streamsrc"
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
		log.Fatalf("[stream-subscriber] failed to load config: %v", err)
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
		log.Fatalf("[stream-subscriber] failed to connect to database: %v", err)
	}
	defer repo.Close()

	var remote *repository.Repository
	if cfg.RemoteDBURL != "" {
		remote, err = repository.NewRepository(cfg.RemoteDBURL, cfg.Threads)
		if err != nil {
			log.Fatalf("[stream-subscriber] failed to connect to remote mirror: %v", err)
		}
		defer remote.Close()
	}

	alreadyIndexed, err := repository.ResumeSet(ctx, repo, remote)
	if err != nil {
		log.Fatalf("[stream-subscriber] failed to load indexed slots: %v", err)
	}

	dialOpts := streamsrc.DialOptions(cfg.Stream.MaxDecodingSize, cfg.Stream.MaxEncodingSize, false)
	stream, err := streamsrc.Dial(ctx, cfg.Stream.Endpoint, cfg.Stream.Token, dialOpts)
	if err != nil {
		log.Fatalf("[stream-subscriber] failed to dial %s: %v", cfg.Stream.Endpoint, err)
	}

	sub := streamsrc.NewSubscriber(stream, cfg.NoMinimization, table, alreadyIndexed)
	sink := make(chan ingest.BlockRecord, 64)

	go func() {
		defer close(sink)
		if err := sub.Run(ctx, sink); err != nil {
			log.Printf("[stream-subscriber] subscription ended: %v", err)
		}
	}()

	if err := persist.Run(ctx, repo, sink, cfg.FailedBlocksDir, "stream-subscriber", cfg.Threads); err != nil {
		log.Printf("[stream-subscriber] persistence loop ended: %v", err)
	}
}
