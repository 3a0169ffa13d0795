package web

import (
	"log"
	"net/http"

	"partscatalog_api/internal/farnell/app/web/handlers"
	"partscatalog_api/metrics"
	"partscatalog_api/pkg/middleware"
)

type Routes struct {
	Search      *handlers.SearchHandler
	BatchSearch *handlers.BatchSearchHandler
	Entries     *handlers.EntryHandler
	Sync        *handlers.SyncHandler
}

// SetupRoutes wires every endpoint behind the metrics middleware and starts
// the HTTP listener. Blocks until the listener fails.
func SetupRoutes(addr string, routes Routes) {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/search", routes.Search.ServeHTTP)
	mux.HandleFunc("/api/search/batch", routes.BatchSearch.ServeHTTP)
	mux.HandleFunc("/api/entries", routes.Entries.ListEntries)
	mux.HandleFunc("/api/entries/", routes.Entries.GetEntry)
	mux.HandleFunc("/api/sync", routes.Sync.ServeHTTP)
	mux.Handle("/metrics", metrics.MetricsHandler())

	log.Printf("Catalog service listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, middleware.PrometheusMiddleware(mux)))
}
