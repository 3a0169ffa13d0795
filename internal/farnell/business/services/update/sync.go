package update

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"partscatalog_api/config/values"
	"partscatalog_api/internal/farnell/business/models"
	"partscatalog_api/internal/farnell/business/services"
	"partscatalog_api/internal/farnell/storage"
	"partscatalog_api/metrics"
	"partscatalog_api/pkg/logger"
)

// SyncService owns the periodic bulk sync: accumulate pages, chunk into
// batches, upsert batch by batch. At most one run is active per process;
// extra triggers are dropped, not queued. The guard is process-local, two
// processes can still overlap.
type SyncService struct {
	paginator *Paginator
	store     storage.CatalogStore
	values    values.SyncValues
	running   atomic.Bool
	log       logger.Logger
}

func NewSyncService(paginator *Paginator, store storage.CatalogStore, syncValues values.SyncValues, writer io.Writer) *SyncService {
	return &SyncService{
		paginator: paginator,
		store:     store,
		values:    syncValues,
		log:       logger.NewLogger(writer, "[SyncService]"),
	}
}

// Running reports whether a sync run is currently active.
func (s *SyncService) Running() bool {
	return s.running.Load()
}

// RunSync executes one sync run. Every failure is logged and absorbed here;
// a tick never crashes the process.
func (s *SyncService) RunSync(ctx context.Context) {
	if s.values.SyncTerm == "" {
		s.log.Log("no sync term configured, skipping run")
		metrics.RecordSyncRun("skipped")
		return
	}
	if !s.running.CompareAndSwap(false, true) {
		s.log.Log("sync already running, skipping trigger")
		metrics.RecordSyncRun("skipped")
		return
	}
	defer s.running.Store(false)

	runID := uuid.NewString()
	started := time.Now()
	s.log.Log("sync run %s started, term=%q target=%d", runID, s.values.SyncTerm, s.values.TargetTotal)

	runMetrics := &metrics.SyncMetrics{}
	result, err := s.paginator.Accumulate(ctx, s.values.SyncTerm,
		s.values.TargetTotal, s.values.MaxPages, s.values.MaxTotal)
	runMetrics.PagesFetched.Store(int32(result.Pages))
	runMetrics.EntriesSeen.Store(int32(len(result.Entries)))
	if err != nil {
		// partial results collected before the failure are still worth
		// persisting; the run itself is recorded as failed
		s.log.Log("sync run %s: accumulation failed: %v", runID, err)
	}

	upserted, batchErr := s.persistBatches(ctx, result.Entries, runMetrics)
	runMetrics.EntriesUpserted.Store(int32(upserted))

	switch {
	case batchErr != nil:
		s.log.Log("sync run %s aborted: %v", runID, batchErr)
		metrics.RecordSyncRun("error")
	case err != nil || result.RateLimited:
		metrics.RecordSyncRun("partial")
	default:
		metrics.RecordSyncRun("ok")
	}

	s.log.Log("sync run %s finished in %s: pages=%d entries=%d upserted=%d failedBatches=%d",
		runID, time.Since(started).Round(time.Millisecond), result.Pages,
		len(result.Entries), upserted, runMetrics.FailedBatches.Load())
}

// persistBatches writes entries in order-preserving fixed-size batches, one
// transaction per batch. The first failed batch aborts the rest of the run;
// batches committed before it stay committed.
func (s *SyncService) persistBatches(ctx context.Context, entries []models.CatalogueEntry, runMetrics *metrics.SyncMetrics) (int, error) {
	upserted := 0
	for i, batch := range partition(entries, s.values.BatchSize) {
		if i > 0 {
			select {
			case <-ctx.Done():
				return upserted, ctx.Err()
			case <-time.After(s.values.BatchDelay):
			}
		}
		if err := s.store.UpsertMany(ctx, batch); err != nil {
			runMetrics.FailedBatches.Add(1)
			return upserted, &services.PersistenceError{Batch: i, Err: err}
		}
		upserted += len(batch)
	}
	return upserted, nil
}

func partition(entries []models.CatalogueEntry, size int) [][]models.CatalogueEntry {
	if size < 1 || len(entries) == 0 {
		return nil
	}
	batches := make([][]models.CatalogueEntry, 0, (len(entries)+size-1)/size)
	for start := 0; start < len(entries); start += size {
		end := start + size
		if end > len(entries) {
			end = len(entries)
		}
		batches = append(batches, entries[start:end])
	}
	return batches
}
