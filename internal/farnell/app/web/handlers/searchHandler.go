package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"partscatalog_api/internal/farnell/business/services/resolve"
)

const maxSearchLimit = 100

type SearchHandler struct {
	resolver *resolve.Resolver
}

func NewSearchHandler(resolver *resolve.Resolver) *SearchHandler {
	return &SearchHandler{resolver: resolver}
}

func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := r.URL.Query()
	q := resolve.Query{
		Term:    params.Get("term"),
		MPN:     params.Get("mpn"),
		ID:      params.Get("id"),
		Keyword: params.Get("keyword"),
		Text:    params.Get("q"),
	}
	limit := clampCount(params.Get("limit"), 20, maxSearchLimit)

	result, err := h.resolver.Resolve(r.Context(), q, limit, params.Get("supplier"), true)
	if err != nil {
		log.Printf("search failed: %v", err)
		http.Error(w, "Failed to resolve search", http.StatusBadGateway)
		return
	}

	writeJSON(w, result)
}

type batchSearchRequest struct {
	Queries  []resolve.Query `json:"queries"`
	Limit    int             `json:"limit"`
	Supplier string          `json:"supplier"`
	Persist  bool            `json:"persist"`
}

type BatchSearchHandler struct {
	resolver *resolve.Resolver
}

func NewBatchSearchHandler(resolver *resolve.Resolver) *BatchSearchHandler {
	return &BatchSearchHandler{resolver: resolver}
}

// ServeHTTP resolves several queries in one call. Persistence of upstream
// results is opt-in here, unlike the single-query endpoint.
func (h *BatchSearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req batchSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Failed to decode request body", http.StatusBadRequest)
		return
	}

	limit := clampInt(req.Limit, 20, maxSearchLimit)
	results := make([]resolve.Result, 0, len(req.Queries))
	for _, q := range req.Queries {
		result, err := h.resolver.Resolve(r.Context(), q, limit, req.Supplier, req.Persist)
		if err != nil {
			log.Printf("batch search failed: %v", err)
			http.Error(w, "Failed to resolve search batch", http.StatusBadGateway)
			return
		}
		results = append(results, result)
	}

	writeJSON(w, map[string]interface{}{"results": results})
}
