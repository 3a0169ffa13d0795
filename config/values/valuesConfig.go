package values

import "time"

type Config interface {
}

// SyncValues are the tuning knobs of the catalog sync engine. Every numeric
// value is clamped to at least 1 by ApplyDefaults so the core never sees a
// zero, negative or fractional count.
type SyncValues struct {
	BatchSize      int           `yaml:"batch-size"`
	PageSize       int           `yaml:"page-size"`
	PageDelay      time.Duration `yaml:"page-delay"`
	BatchDelay     time.Duration `yaml:"batch-delay"`
	TargetTotal    int           `yaml:"target-total"`
	MaxPages       int           `yaml:"max-pages"`
	MaxTotal       int           `yaml:"max-total"`
	PaginationMode string        `yaml:"pagination-mode"`
	CacheTTL       time.Duration `yaml:"cache-ttl"`
	SyncInterval   time.Duration `yaml:"sync-interval"`
	SyncTerm       string        `yaml:"sync-term"`
}

const (
	DefaultBatchSize   = 50
	DefaultPageSize    = 25
	DefaultPageDelay   = 500 * time.Millisecond
	DefaultBatchDelay  = 250 * time.Millisecond
	DefaultTargetTotal = 500
	DefaultMaxPages    = 40
	DefaultMaxTotal    = 1000
	DefaultCacheTTL    = 5 * time.Minute
	DefaultInterval    = 6 * time.Hour
)

func (v *SyncValues) ApplyDefaults() {
	v.BatchSize = orDefault(v.BatchSize, DefaultBatchSize)
	v.PageSize = orDefault(v.PageSize, DefaultPageSize)
	v.TargetTotal = orDefault(v.TargetTotal, DefaultTargetTotal)
	v.MaxPages = orDefault(v.MaxPages, DefaultMaxPages)
	v.MaxTotal = orDefault(v.MaxTotal, DefaultMaxTotal)
	if v.PageDelay <= 0 {
		v.PageDelay = DefaultPageDelay
	}
	if v.BatchDelay <= 0 {
		v.BatchDelay = DefaultBatchDelay
	}
	if v.CacheTTL == 0 {
		v.CacheTTL = DefaultCacheTTL
	}
	if v.SyncInterval <= 0 {
		v.SyncInterval = DefaultInterval
	}
}

func orDefault(value, def int) int {
	if value < 1 {
		return def
	}
	return value
}
