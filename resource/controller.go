// Package resource enforces the operational limits of an engine instance:
// how many searches run at once, how fast ingestion may write, and how large
// the on-disk index may grow.
package resource

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrIndexTooLarge is returned when a write would push the index past the
// configured size limit.
var ErrIndexTooLarge = errors.New("resource: index size limit exceeded")

// Config holds resource limits. Zero values disable the respective limit.
type Config struct {
	// MaxConcurrentSearches caps the number of searches running at once.
	MaxConcurrentSearches int64

	// MaxIngestWorkers caps concurrently applied update batches. Batches on
	// one index serialize anyway; this bounds work across indexes.
	// If 0, defaults to 1.
	MaxIngestWorkers int64

	// IngestRateBytesPerSec throttles ingestion throughput.
	IngestRateBytesPerSec int64

	// MaxIndexBytes is the hard limit for the stored index size.
	MaxIndexBytes int64
}

// Controller coordinates resource usage across an engine instance.
type Controller struct {
	cfg Config

	searchSem *semaphore.Weighted // nil if unlimited
	inFlight  atomic.Int64

	ingestSem     *semaphore.Weighted
	ingestLimiter *rate.Limiter
}

// NewController creates a controller for the given limits.
func NewController(cfg Config) *Controller {
	if cfg.MaxIngestWorkers <= 0 {
		cfg.MaxIngestWorkers = 1
	}

	c := &Controller{
		cfg:       cfg,
		ingestSem: semaphore.NewWeighted(cfg.MaxIngestWorkers),
	}

	if cfg.MaxConcurrentSearches > 0 {
		c.searchSem = semaphore.NewWeighted(cfg.MaxConcurrentSearches)
	}

	if cfg.IngestRateBytesPerSec > 0 {
		c.ingestLimiter = rate.NewLimiter(rate.Limit(cfg.IngestRateBytesPerSec), int(cfg.IngestRateBytesPerSec))
	}

	return c
}

// AcquireSearch reserves a search slot, blocking until one is free or ctx is
// canceled.
func (c *Controller) AcquireSearch(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.searchSem != nil {
		if err := c.searchSem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	c.inFlight.Add(1)
	return nil
}

// TryAcquireSearch reserves a search slot without blocking.
func (c *Controller) TryAcquireSearch() bool {
	if c == nil {
		return true
	}
	if c.searchSem != nil && !c.searchSem.TryAcquire(1) {
		return false
	}
	c.inFlight.Add(1)
	return true
}

// ReleaseSearch returns a search slot.
func (c *Controller) ReleaseSearch() {
	if c == nil {
		return
	}
	if c.searchSem != nil {
		c.searchSem.Release(1)
	}
	c.inFlight.Add(-1)
}

// InFlightSearches returns the number of searches currently running.
func (c *Controller) InFlightSearches() int64 {
	if c == nil {
		return 0
	}
	return c.inFlight.Load()
}

// AcquireIngest reserves an ingestion worker slot.
func (c *Controller) AcquireIngest(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.ingestSem.Acquire(ctx, 1)
}

// TryAcquireIngest reserves an ingestion worker slot without blocking.
func (c *Controller) TryAcquireIngest() bool {
	if c == nil {
		return true
	}
	return c.ingestSem.TryAcquire(1)
}

// ReleaseIngest returns an ingestion worker slot.
func (c *Controller) ReleaseIngest() {
	if c == nil {
		return
	}
	c.ingestSem.Release(1)
}

// ThrottleIngest waits until the ingestion rate limit admits the given
// number of bytes.
func (c *Controller) ThrottleIngest(ctx context.Context, bytes int) error {
	if c == nil || c.ingestLimiter == nil {
		return nil
	}
	return c.ingestLimiter.WaitN(ctx, bytes)
}

// CheckIndexSize verifies that the stored index may still grow.
func (c *Controller) CheckIndexSize(currentBytes int64) error {
	if c == nil || c.cfg.MaxIndexBytes <= 0 {
		return nil
	}
	if currentBytes >= c.cfg.MaxIndexBytes {
		return fmt.Errorf("%w: %d >= %d bytes", ErrIndexTooLarge, currentBytes, c.cfg.MaxIndexBytes)
	}
	return nil
}
