package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"partscatalog_api/internal/farnell/business/models"
	"partscatalog_api/internal/farnell/storage"
)

const maxListLimit = 200

// PageFetcher is the slice of the search engine the refresh path needs.
type PageFetcher interface {
	FetchPage(ctx context.Context, term string, offset, count int, responseGroup string) ([]models.CatalogueEntry, error)
}

type EntryHandler struct {
	store         storage.CatalogStore
	fetcher       PageFetcher
	responseGroup string
}

func NewEntryHandler(store storage.CatalogStore, fetcher PageFetcher, responseGroup string) *EntryHandler {
	return &EntryHandler{store: store, fetcher: fetcher, responseGroup: responseGroup}
}

// ListEntries serves the paginated local listing.
func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := r.URL.Query()
	limit := clampCount(params.Get("limit"), 50, maxListLimit)
	offset := clampCount(params.Get("offset"), 1, 1<<30) - 1

	entries, err := h.store.FindMany(r.Context(), storage.Filter{
		Supplier: params.Get("supplier"),
		Offset:   offset,
	}, limit)
	if err != nil {
		log.Printf("listing entries failed: %v", err)
		http.Error(w, "Failed to list catalog entries", http.StatusInternalServerError)
		return
	}

	total, err := h.store.Count(r.Context())
	if err != nil {
		log.Printf("counting entries failed: %v", err)
		http.Error(w, "Failed to count catalog entries", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"total":   total,
		"count":   len(entries),
		"entries": entries,
	})
}

// GetEntry serves a single entry by SKU. With refresh=1 the entry is
// re-fetched from the upstream and upserted before answering.
func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sku := strings.TrimPrefix(r.URL.Path, "/api/entries/")
	if sku == "" || strings.Contains(sku, "/") {
		http.Error(w, "missing or invalid sku", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("refresh") == "1" {
		if err := h.refresh(r.Context(), sku); err != nil {
			log.Printf("refreshing %s failed: %v", sku, err)
			http.Error(w, "Failed to refresh entry", http.StatusBadGateway)
			return
		}
	}

	key := string(models.SupplierFarnell) + ":" + sku
	entry, err := h.store.FindOne(r.Context(), key)
	if err != nil {
		log.Printf("fetching %s failed: %v", key, err)
		http.Error(w, "Failed to fetch entry", http.StatusInternalServerError)
		return
	}
	if entry == nil {
		http.Error(w, "entry not found", http.StatusNotFound)
		return
	}

	writeJSON(w, entry)
}

func (h *EntryHandler) refresh(ctx context.Context, sku string) error {
	entries, err := h.fetcher.FetchPage(ctx, "id:"+sku, 0, 1, h.responseGroup)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	return h.store.UpsertMany(ctx, entries)
}
