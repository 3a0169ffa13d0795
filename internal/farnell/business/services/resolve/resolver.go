package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"partscatalog_api/internal/farnell/business/models"
	"partscatalog_api/internal/farnell/business/services"
	"partscatalog_api/internal/farnell/storage"
	"partscatalog_api/metrics"
	"partscatalog_api/pkg/logger"
)

// PageFetcher is the slice of the search engine the resolver needs.
type PageFetcher interface {
	FetchPage(ctx context.Context, term string, offset, count int, responseGroup string) ([]models.CatalogueEntry, error)
}

const (
	SourceLocal    = "local"
	SourceSupplier = string(models.SupplierFarnell)
	SourceEmpty    = "empty"
)

// Query is one search request. An explicit Term wins outright, then MPN, ID
// and Keyword in that order; a bare Text query is classified by shape.
type Query struct {
	Term    string `json:"term,omitempty"`
	MPN     string `json:"mpn,omitempty"`
	ID      string `json:"id,omitempty"`
	Keyword string `json:"keyword,omitempty"`
	Text    string `json:"q,omitempty"`
}

// Result is a resolved search. Source says where the items came from;
// RateLimited marks a degraded answer cut short by upstream throttling.
type Result struct {
	Source      string                  `json:"source"`
	Count       int                     `json:"count"`
	Items       []models.CatalogueEntry `json:"items"`
	RateLimited bool                    `json:"rate_limited,omitempty"`
}

// Resolver serves live lookups: result cache, then local store, then one
// upstream page that is persisted so the next identical search stays local.
type Resolver struct {
	store         storage.CatalogStore
	fetcher       PageFetcher
	cache         *Cache
	responseGroup string
	log           logger.Logger
}

func NewResolver(store storage.CatalogStore, fetcher PageFetcher, cache *Cache, responseGroup string, writer io.Writer) *Resolver {
	return &Resolver{
		store:         store,
		fetcher:       fetcher,
		cache:         cache,
		responseGroup: responseGroup,
		log:           logger.NewLogger(writer, "[Resolver]"),
	}
}

// Resolve answers one search. RateLimitedError from the fetcher degrades to
// an empty result flagged RateLimited; store and other upstream failures
// propagate to the caller. With persist false an upstream page is returned
// without being written to the store or the cache.
func (r *Resolver) Resolve(ctx context.Context, q Query, limit int, supplier string, persist bool) (Result, error) {
	term, value, ok := q.Normalize()
	if !ok {
		return Result{Source: SourceEmpty}, nil
	}

	key := cacheKey(supplier, limit, term)
	if cached, hit := r.cache.Get(key); hit {
		metrics.RecordCacheLookup("hit")
		return cached, nil
	}
	metrics.RecordCacheLookup("miss")

	local, err := r.store.FindMany(ctx, storage.Filter{
		Supplier: supplier,
		SKU:      value,
		NameLike: value,
	}, limit)
	if err != nil {
		return Result{}, fmt.Errorf("local catalog lookup: %w", err)
	}
	if len(local) > 0 {
		result := Result{Source: SourceLocal, Count: len(local), Items: local}
		r.cache.Set(key, result)
		return result, nil
	}

	// no upstream capability for supplier codes other than farnell yet
	if supplier != "" && supplier != string(models.SupplierFarnell) {
		return Result{Source: SourceEmpty}, nil
	}

	entries, err := r.fetcher.FetchPage(ctx, term, 0, limit, r.responseGroup)
	if err != nil {
		var rl *services.RateLimitedError
		if errors.As(err, &rl) {
			r.log.Log("degrading %q to empty result, upstream rate limited", term)
			return Result{Source: SourceEmpty, RateLimited: true}, nil
		}
		return Result{}, err
	}
	if len(entries) == 0 {
		return Result{Source: SourceEmpty}, nil
	}

	if !persist {
		return Result{Source: SourceSupplier, Count: len(entries), Items: entries}, nil
	}

	if err := r.store.UpsertMany(ctx, entries); err != nil {
		return Result{}, &services.PersistenceError{Err: err}
	}

	// read back so the caller gets persisted field shapes, not raw upstream
	// ones
	keys := make([]string, 0, len(entries))
	for i := range entries {
		keys = append(keys, entries[i].SupplierKey())
	}
	stored, err := r.store.FindMany(ctx, storage.Filter{Keys: keys}, limit)
	if err != nil {
		return Result{}, fmt.Errorf("reading back persisted entries: %w", err)
	}

	// the persisted entries are local data from now on, so the cached copy
	// answers repeat searches as a local hit
	r.cache.Set(key, Result{Source: SourceLocal, Count: len(stored), Items: stored})
	return Result{Source: SourceSupplier, Count: len(stored), Items: stored}, nil
}

// Normalize maps a query onto the upstream search-term grammar. It returns
// the wire term, the bare value used for local matching, and false when the
// query is empty or whitespace only.
func (q Query) Normalize() (term, value string, ok bool) {
	switch {
	case strings.TrimSpace(q.Term) != "":
		term = strings.TrimSpace(q.Term)
		value = term
		if idx := strings.Index(term, ":"); idx >= 0 {
			value = term[idx+1:]
		}
		return term, value, true
	case strings.TrimSpace(q.MPN) != "":
		value = strings.TrimSpace(q.MPN)
		return "manuPartNum:" + value, value, true
	case strings.TrimSpace(q.ID) != "":
		value = strings.TrimSpace(q.ID)
		return "id:" + value, value, true
	case strings.TrimSpace(q.Keyword) != "":
		value = strings.TrimSpace(q.Keyword)
		return "any:" + value, value, true
	}

	value = strings.TrimSpace(q.Text)
	if value == "" {
		return "", "", false
	}
	switch {
	case strings.ContainsFunc(value, unicode.IsSpace):
		return "any:" + value, value, true
	case isNumeric(value):
		return "id:" + value, value, true
	default:
		return "manuPartNum:" + value, value, true
	}
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func cacheKey(supplier string, limit int, term string) string {
	return fmt.Sprintf("%s|%d|%s", supplier, limit, cases.Fold().String(term))
}
