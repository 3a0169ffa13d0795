package update

import (
	"context"
	"errors"
	"io"
	"time"

	"golang.org/x/time/rate"

	"partscatalog_api/internal/farnell/business/models"
	"partscatalog_api/internal/farnell/business/services"
	"partscatalog_api/pkg/logger"
)

// PageFetcher is the slice of the search engine the paginator needs.
type PageFetcher interface {
	FetchPage(ctx context.Context, term string, offset, count int, responseGroup string) ([]models.CatalogueEntry, error)
}

// PaginationMode says how the upstream offset parameter is counted. The
// upstream API does not document this reliably, hence runtime detection.
type PaginationMode string

const (
	ModeItemOffset PaginationMode = "item-offset"
	ModePageIndex  PaginationMode = "page-index"

	// duplicateStreakLimit stops a run after this many consecutive pages
	// that contained nothing new.
	duplicateStreakLimit = 2
)

// Paginator drives repeated page fetches until a target number of unique
// entries is accumulated, adapting to the upstream's ambiguous pagination
// contract along the way.
type Paginator struct {
	fetcher       PageFetcher
	pageSize      int
	mode          PaginationMode
	autoDetect    bool
	responseGroup string
	limiter       *rate.Limiter
	log           logger.Logger
}

// NewPaginator builds a paginator. An empty or "auto" mode starts in
// item-offset mode with auto-detection enabled; "item-offset" or
// "page-index" pins the mode.
func NewPaginator(fetcher PageFetcher, pageSize int, pageDelay time.Duration, mode string, responseGroup string, writer io.Writer) *Paginator {
	p := &Paginator{
		fetcher:       fetcher,
		pageSize:      pageSize,
		mode:          ModeItemOffset,
		autoDetect:    true,
		responseGroup: responseGroup,
		limiter:       rate.NewLimiter(rate.Every(pageDelay), 1),
		log:           logger.NewLogger(writer, "[Paginator]"),
	}
	switch PaginationMode(mode) {
	case ModeItemOffset:
		p.autoDetect = false
	case ModePageIndex:
		p.mode = ModePageIndex
		p.autoDetect = false
	}
	return p
}

// AccumulateResult is what one accumulation run produced. RateLimited marks a
// partial run cut short by upstream throttling.
type AccumulateResult struct {
	Entries     []models.CatalogueEntry
	RateLimited bool
	Pages       int
}

// Accumulate fetches pages for term until it has targetTotal unique entries,
// or runs out of pages, budget or productive upstream results. Entries are
// unique by SKU within the run. A RateLimitedError from the fetcher ends the
// run as a flagged partial success; an UpstreamError is returned together
// with whatever was collected before it.
func (p *Paginator) Accumulate(ctx context.Context, term string, targetTotal, maxPages, maxTotal int) (AccumulateResult, error) {
	budget := targetTotal
	if maxTotal < budget {
		budget = maxTotal
	}

	var result AccumulateResult
	seen := make(map[string]struct{})
	mode := p.mode
	dupStreak := 0

	for page := 0; ; page++ {
		if len(result.Entries) >= budget || page >= maxPages {
			break
		}

		// politeness pacing toward the upstream, independent of the
		// fetcher's own backoff
		if err := p.limiter.Wait(ctx); err != nil {
			return result, err
		}

		entries, err := p.fetchAt(ctx, term, mode, page)
		if err != nil {
			var rl *services.RateLimitedError
			if errors.As(err, &rl) {
				p.log.Log("run for %q rate limited at page %d, keeping %d entries", term, page, len(result.Entries))
				result.RateLimited = true
				return result, nil
			}
			return result, err
		}
		result.Pages++

		if len(entries) == 0 && p.autoDetect && mode == ModeItemOffset && page > 0 {
			// Best-effort recovery: an empty page past the first one in
			// item-offset mode usually means the offset actually counts
			// pages. Switch for the rest of the run and retry this page.
			mode = ModePageIndex
			p.log.Log("empty page %d in item-offset mode, switching to page-index", page)
			entries, err = p.fetchAt(ctx, term, mode, page)
			if err != nil {
				var rl *services.RateLimitedError
				if errors.As(err, &rl) {
					result.RateLimited = true
					return result, nil
				}
				return result, err
			}
			result.Pages++
		}
		if len(entries) == 0 {
			break
		}

		added := 0
		for _, entry := range entries {
			if len(result.Entries) >= budget {
				break
			}
			if _, ok := seen[entry.SupplierSku]; ok {
				continue
			}
			seen[entry.SupplierSku] = struct{}{}
			result.Entries = append(result.Entries, entry)
			added++
		}

		if added == 0 {
			dupStreak++
			if dupStreak >= duplicateStreakLimit {
				p.log.Log("upstream started repeating for %q, stopping after page %d", term, page)
				break
			}
			continue
		}
		dupStreak = 0
	}

	return result, nil
}

func (p *Paginator) fetchAt(ctx context.Context, term string, mode PaginationMode, page int) ([]models.CatalogueEntry, error) {
	offset := page
	if mode == ModeItemOffset {
		offset = page * p.pageSize
	}
	return p.fetcher.FetchPage(ctx, term, offset, p.pageSize, p.responseGroup)
}
