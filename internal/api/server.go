// Package api exposes a single read endpoint that returns the ordered
// transfer flow for one already-indexed block, plus a health check.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rangesecurity/sb-dl-go/internal/ingest"
	"github.com/rangesecurity/sb-dl-go/internal/repository"
)

// BuildCommit is set by main to the git commit hash baked in at build
// time.
var BuildCommit = "dev"

// Repository is the subset of *repository.Repository the query
// surface needs, kept as an interface so handlers can be tested
// against a fake without a live Postgres connection.
type Repository interface {
	SelectBlock(ctx context.Context, table ingest.Table, filter repository.BlockFilter) ([]repository.BlockRow, error)
}

type Server struct {
	router *mux.Router
	repo   Repository
	cache  *orderedTransfersCache
}

func NewServer(repo Repository) *Server {
	router := mux.NewRouter()
	s := &Server{router: router, repo: repo, cache: newOrderedTransfersCache()}
	registerRoutes(router, s)
	router.Use(requestIDMiddleware)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "build": BuildCommit})
}
