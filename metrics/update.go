package metrics

import "sync/atomic"

type SyncMetrics struct {
	PagesFetched    atomic.Int32
	EntriesSeen     atomic.Int32
	EntriesUpserted atomic.Int32
	FailedBatches   atomic.Int32
}
