package get

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"partscatalog_api/config"
	"partscatalog_api/internal/farnell/business/dto/responses"
	"partscatalog_api/internal/farnell/business/models"
	"partscatalog_api/internal/farnell/business/services"
	"partscatalog_api/metrics"
	"partscatalog_api/pkg/logger"
	"partscatalog_api/pkg/retry"
)

const (
	MaxRetries     = 4
	BackoffSeed    = 1 * time.Second
	BackoffCap     = 30 * time.Second
	RequestTimeout = 30 * time.Second

	searchPath = "/catalog/products"
)

// rate-limit phrasing seen in upstream 403 bodies
var rateLimitPhrases = []string{"rate limit", "queries per second"}

type Config struct {
	MaxRetries     int
	BackoffSeed    time.Duration
	BackoffCap     time.Duration
	RequestTimeout time.Duration
}

// SearchEngine fetches one page of catalogue results from the upstream
// product search API, absorbing transient failures with bounded retries.
type SearchEngine struct {
	farnell config.FarnellConfig
	cfg     Config
	client  *http.Client
	log     logger.Logger
}

func NewSearchEngine(farnell config.FarnellConfig, cfg Config, writer io.Writer) *SearchEngine {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = MaxRetries
	}
	if cfg.BackoffSeed <= 0 {
		cfg.BackoffSeed = BackoffSeed
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = BackoffCap
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = RequestTimeout
	}
	return &SearchEngine{
		farnell: farnell,
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		log:     logger.NewLogger(writer, "[SearchEngine]"),
	}
}

// FetchPage requests one page of results for term. On exhaustion it fails
// with RateLimitedError when the upstream was throttling, UpstreamError
// otherwise.
func (s *SearchEngine) FetchPage(ctx context.Context, term string, offset, count int, responseGroup string) ([]models.CatalogueEntry, error) {
	reqURL := s.buildURL(term, offset, count, responseGroup)

	var entries []models.CatalogueEntry
	err := retry.Do(ctx, s.cfg.MaxRetries, retry.Exponential(s.cfg.BackoffSeed, s.cfg.BackoffCap), func(attempt int) error {
		if attempt > 0 {
			s.log.Log("retrying page fetch, term=%q offset=%d attempt=%d", term, offset, attempt+1)
		}
		fetched, err := s.fetchOnce(ctx, reqURL)
		if err != nil {
			return err
		}
		entries = fetched
		return nil
	})
	if err != nil {
		var rl *services.RateLimitedError
		if errors.As(err, &rl) {
			metrics.RecordUpstreamRequest("rate_limited")
			return nil, rl
		}
		metrics.RecordUpstreamRequest("error")
		var up *services.UpstreamError
		if errors.As(err, &up) {
			return nil, up
		}
		return nil, &services.UpstreamError{Message: err.Error()}
	}

	metrics.RecordUpstreamRequest("ok")
	return entries, nil
}

func (s *SearchEngine) fetchOnce(ctx context.Context, reqURL string) ([]models.CatalogueEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, retry.Permanent(&services.UpstreamError{Message: err.Error()})
	}

	resp, err := s.client.Do(req)
	if err != nil {
		// transport failure, retryable
		return nil, &services.UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &services.UpstreamError{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return s.parseBody(body)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, retry.After(retryAfterHint(resp), &services.RateLimitedError{Message: resp.Status})
	case resp.StatusCode == http.StatusForbidden && looksRateLimited(body):
		// some deployments report throttling as a specially worded 403
		return nil, retry.After(retryAfterHint(resp), &services.RateLimitedError{Message: snippet(body)})
	default:
		return nil, &services.UpstreamError{StatusCode: resp.StatusCode, Message: snippet(body)}
	}
}

func (s *SearchEngine) parseBody(body []byte) ([]models.CatalogueEntry, error) {
	products, err := responses.ParseSearchResponse(body)
	if err != nil {
		// a malformed 200 body will not improve on retry
		return nil, retry.Permanent(&services.UpstreamError{StatusCode: http.StatusOK, Message: err.Error()})
	}

	now := time.Now().UTC()
	entries := make([]models.CatalogueEntry, 0, len(products))
	for _, p := range products {
		sku := p.Sku
		if sku == "" {
			// keep name-only products addressable
			sku = p.DisplayName
		}
		entries = append(entries, models.CatalogueEntry{
			Supplier:        models.SupplierFarnell,
			SupplierSku:     sku,
			Name:            p.DisplayName,
			Raw:             p.Raw,
			SourceUpdatedAt: now,
		})
	}
	return entries, nil
}

func (s *SearchEngine) buildURL(term string, offset, count int, responseGroup string) string {
	q := url.Values{}
	q.Set("callInfo.responseDataFormat", "JSON")
	q.Set("callInfo.apiKey", s.farnell.ApiKey)
	q.Set("storeInfo.id", s.farnell.StoreID)
	q.Set("term", term)
	q.Set("resultsSettings.offset", strconv.Itoa(offset))
	q.Set("resultsSettings.numberOfResults", strconv.Itoa(count))
	q.Set("resultsSettings.responseGroup", responseGroup)
	if s.farnell.ApiVersion != "" {
		q.Set("versionNumber", s.farnell.ApiVersion)
	}
	if s.farnell.ResultsFilter != "" {
		q.Set("resultsSettings.refinements.filters", s.farnell.ResultsFilter)
	}
	return strings.TrimRight(s.farnell.BaseURL, "/") + searchPath + "?" + q.Encode()
}

func retryAfterHint(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func looksRateLimited(body []byte) bool {
	lowered := strings.ToLower(string(body))
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

func snippet(body []byte) string {
	const maxLen = 200
	text := strings.TrimSpace(string(body))
	if len(text) > maxLen {
		text = text[:maxLen]
	}
	if text == "" {
		return "empty response body"
	}
	return text
}
