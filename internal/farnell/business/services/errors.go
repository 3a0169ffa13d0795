package services

import "fmt"

// RateLimitedError means the upstream is explicitly throttling us. Callers
// degrade to partial or empty results instead of failing the whole request.
type RateLimitedError struct {
	Message string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("upstream rate limited: %s", e.Message)
}

// UpstreamError is any non-rate-limit HTTP or transport failure after the
// retry budget is exhausted.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream error: %s", e.Message)
}

// PersistenceError is a failed store transaction. The failed batch aborts the
// rest of the run; batches already committed stay committed.
type PersistenceError struct {
	Batch int
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting batch %d: %v", e.Batch, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
