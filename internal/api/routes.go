package api

import (
	"github.com/gorilla/mux"
)

// registerRoutes wires up the handful of routes this server exposes.
// Caching for orderedTransfers lives inside handleOrderedTransfers
// itself, keyed on the (table, blockNumber) the request resolves to.
func registerRoutes(r *mux.Router, s *Server) {
	r.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")
	r.HandleFunc("/orderedTransfers/{blockNumber}/{tableNumber}",
		s.handleOrderedTransfers).Methods("GET", "OPTIONS")
}
