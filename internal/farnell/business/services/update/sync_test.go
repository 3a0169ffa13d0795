package update

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partscatalog_api/config/values"
	"partscatalog_api/internal/farnell/business/models"
	"partscatalog_api/internal/farnell/storage"
)

type recordingStore struct {
	mu      sync.Mutex
	batches [][]models.CatalogueEntry
	failAt  int // 1-based batch index to fail at, 0 means never
	block   chan struct{}
	entered chan struct{}
}

func (s *recordingStore) UpsertMany(_ context.Context, entries []models.CatalogueEntry) error {
	if s.entered != nil {
		s.mu.Lock()
		if s.entered != nil {
			close(s.entered)
			s.entered = nil
		}
		s.mu.Unlock()
	}
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, entries)
	if s.failAt > 0 && len(s.batches) == s.failAt {
		return errors.New("deadlock detected")
	}
	return nil
}

func (s *recordingStore) FindMany(context.Context, storage.Filter, int) ([]models.CatalogueEntry, error) {
	return nil, nil
}

func (s *recordingStore) FindOne(context.Context, string) (*models.CatalogueEntry, error) {
	return nil, nil
}

func (s *recordingStore) Count(context.Context) (int, error) {
	return 0, nil
}

func (s *recordingStore) batchSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sizes := make([]int, 0, len(s.batches))
	for _, batch := range s.batches {
		sizes = append(sizes, len(batch))
	}
	return sizes
}

func testSyncValues() values.SyncValues {
	return values.SyncValues{
		BatchSize:   2,
		PageSize:    5,
		PageDelay:   time.Millisecond,
		BatchDelay:  time.Millisecond,
		TargetTotal: 5,
		MaxPages:    3,
		MaxTotal:    10,
		SyncTerm:    "any:resistor",
	}
}

func newTestSyncService(fetcher PageFetcher, store storage.CatalogStore, v values.SyncValues) *SyncService {
	paginator := NewPaginator(fetcher, v.PageSize, v.PageDelay, "item-offset", "medium", nil)
	return NewSyncService(paginator, store, v, nil)
}

func TestRunSyncBatchesInOrder(t *testing.T) {
	fetcher := &scriptedFetcher{script: func(call, offset int) ([]models.CatalogueEntry, error) {
		if call == 0 {
			return entriesWithSkus("a", "b", "c", "d", "e"), nil
		}
		return nil, nil
	}}
	store := &recordingStore{}
	service := newTestSyncService(fetcher, store, testSyncValues())

	service.RunSync(context.Background())

	assert.Equal(t, []int{2, 2, 1}, store.batchSizes(), "order-preserving batches, short last batch")
	assert.Equal(t, "a", store.batches[0][0].SupplierSku)
	assert.Equal(t, "e", store.batches[2][0].SupplierSku)
	assert.False(t, service.Running())
}

func TestRunSyncAbortsRemainingBatchesOnFailure(t *testing.T) {
	fetcher := &scriptedFetcher{script: func(call, offset int) ([]models.CatalogueEntry, error) {
		if call == 0 {
			return entriesWithSkus("a", "b", "c", "d", "e"), nil
		}
		return nil, nil
	}}
	store := &recordingStore{failAt: 2}
	service := newTestSyncService(fetcher, store, testSyncValues())

	service.RunSync(context.Background())

	// the failed second batch is the last one attempted; the first stays
	// committed
	assert.Equal(t, []int{2, 2}, store.batchSizes())
	assert.False(t, service.Running())
}

func TestRunSyncIsSingleFlight(t *testing.T) {
	fetcher := &scriptedFetcher{script: func(call, offset int) ([]models.CatalogueEntry, error) {
		if call == 0 {
			return entriesWithSkus("a"), nil
		}
		return nil, nil
	}}
	store := &recordingStore{block: make(chan struct{}), entered: make(chan struct{})}
	entered := store.entered
	service := newTestSyncService(fetcher, store, testSyncValues())

	done := make(chan struct{})
	go func() {
		service.RunSync(context.Background())
		close(done)
	}()

	// wait for the first run to reach the blocked store write
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("first run never reached the store")
	}
	require.True(t, service.Running())

	// a second trigger while running is dropped, not queued
	service.RunSync(context.Background())
	assert.Len(t, fetcher.calls, 2, "second trigger must not start another accumulation")

	close(store.block)
	<-done

	assert.False(t, service.Running())
	assert.Equal(t, []int{1}, store.batchSizes())
}

func TestRunSyncPersistsPartialResultsOnUpstreamError(t *testing.T) {
	fetcher := &scriptedFetcher{script: func(call, offset int) ([]models.CatalogueEntry, error) {
		if call == 0 {
			return entriesWithSkus("a", "b"), nil
		}
		return nil, errUpstream
	}}
	store := &recordingStore{}
	service := newTestSyncService(fetcher, store, testSyncValues())

	service.RunSync(context.Background())

	assert.Equal(t, []int{2}, store.batchSizes(), "entries collected before the failure are persisted")
}

var errUpstream = &upstreamStub{}

type upstreamStub struct{}

func (e *upstreamStub) Error() string { return "upstream exploded" }
