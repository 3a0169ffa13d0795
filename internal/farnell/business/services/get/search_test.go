package get

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partscatalog_api/config"
	"partscatalog_api/internal/farnell/business/models"
	"partscatalog_api/internal/farnell/business/services"
)

func newTestEngine(t *testing.T, handler http.HandlerFunc) (*SearchEngine, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	engine := NewSearchEngine(config.FarnellConfig{
		ApiKey:     "test-key",
		StoreID:    "uk.farnell.com",
		BaseURL:    server.URL,
		ApiVersion: "1.2",
	}, Config{
		MaxRetries:  3,
		BackoffSeed: time.Millisecond,
		BackoffCap:  5 * time.Millisecond,
	}, nil)
	return engine, server
}

func TestFetchPageSuccess(t *testing.T) {
	var gotQuery map[string][]string
	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"keywordSearchReturn":{"numberOfResults":1,"products":[
			{"sku":"2525225","displayName":"RASPBERRY PI 4","brandName":"RASPBERRY-PI"}
		]}}`))
	})

	entries, err := engine.FetchPage(context.Background(), "any:raspberry pi", 0, 10, "medium")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, models.SupplierFarnell, entry.Supplier)
	assert.Equal(t, "2525225", entry.SupplierSku)
	assert.Equal(t, "farnell:2525225", entry.SupplierKey())
	assert.Equal(t, "RASPBERRY PI 4", entry.Name)
	assert.Contains(t, string(entry.Raw), "RASPBERRY-PI")
	assert.False(t, entry.SourceUpdatedAt.IsZero())

	assert.Equal(t, "any:raspberry pi", gotQuery["term"][0])
	assert.Equal(t, "test-key", gotQuery["callInfo.apiKey"][0])
	assert.Equal(t, "uk.farnell.com", gotQuery["storeInfo.id"][0])
	assert.Equal(t, "0", gotQuery["resultsSettings.offset"][0])
	assert.Equal(t, "10", gotQuery["resultsSettings.numberOfResults"][0])
	assert.Equal(t, "medium", gotQuery["resultsSettings.responseGroup"][0])
}

func TestFetchPageRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"keywordSearchReturn":{"numberOfResults":0}}`))
	})

	entries, err := engine.FetchPage(context.Background(), "any:led", 0, 5, "small")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 3, attempts)
}

func TestFetchPageRateLimited(t *testing.T) {
	attempts := 0
	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := engine.FetchPage(context.Background(), "any:led", 0, 5, "small")

	var rateLimited *services.RateLimitedError
	require.ErrorAs(t, err, &rateLimited)
	assert.Equal(t, 3, attempts)
}

func TestFetchPageForbiddenWithRateLimitPhrasing(t *testing.T) {
	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"Account exceeded Queries Per Second rate limit"}`))
	})

	_, err := engine.FetchPage(context.Background(), "any:led", 0, 5, "small")

	var rateLimited *services.RateLimitedError
	require.ErrorAs(t, err, &rateLimited)
}

func TestFetchPagePlainForbiddenIsUpstreamError(t *testing.T) {
	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"invalid api key"}`))
	})

	_, err := engine.FetchPage(context.Background(), "any:led", 0, 5, "small")

	var upstream *services.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusForbidden, upstream.StatusCode)

	var rateLimited *services.RateLimitedError
	assert.False(t, errors.As(err, &rateLimited))
}

func TestFetchPageMalformedBodyIsNotRetried(t *testing.T) {
	attempts := 0
	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Write([]byte(`<html>not json</html>`))
	})

	_, err := engine.FetchPage(context.Background(), "any:led", 0, 5, "small")

	var upstream *services.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, 1, attempts)
}

func TestFetchPageUsesNameAsFallbackSku(t *testing.T) {
	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"keywordSearchReturn":{"numberOfResults":1,"products":[
			{"displayName":"MYSTERY PART"}
		]}}`))
	})

	entries, err := engine.FetchPage(context.Background(), "any:mystery", 0, 5, "small")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "MYSTERY PART", entries[0].SupplierSku)
}
