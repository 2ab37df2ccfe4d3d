// Command query-server serves a single read endpoint returning the
// ordered transfer flow for an already-indexed block.
package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/rangesecurity/sb-dl-go/internal/api"
	"github.com/rangesecurity/sb-dl-go/internal/config"
	"github.com/rangesecurity/sb-dl-go/internal/repository"
)

var buildCommit = "dev"

func main() {
	var (
		configPath string
		addr       string
	)
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file")
	flag.StringVar(&addr, "addr", ":8080", "listen address")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[query-server] failed to load config: %v", err)
	}

	repo, err := repository.NewRepository(cfg.DBURL, cfg.Threads)
	if err != nil {
		log.Fatalf("[query-server] failed to connect to database: %v", err)
	}
	defer repo.Close()

	api.BuildCommit = buildCommit
	server := api.NewServer(repo)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	log.Printf("[query-server] listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("[query-server] server error: %v", err)
	}
}
