package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/diminuto-go/diminuto/internal/ipc"
	"github.com/diminuto-go/diminuto/internal/metrics"
	"github.com/diminuto-go/diminuto/internal/rwlock"
)

// ifaceRefreshInterval is how often the interface cache is refreshed from
// the kernel.
const ifaceRefreshInterval = 30 * time.Second

// ifaceCache serves a periodically refreshed snapshot of the host's
// network interfaces, guarded by a fair reader-writer lock: readers (any
// future consumer of the cache) never starve behind a slow refresh, and
// a refresh never starves behind a steady stream of readers.
type ifaceCache struct {
	lock *rwlock.Lock

	mu     sync.Mutex
	cached []ipc.Interface
}

func newIfaceCache(debug bool, logger *slog.Logger) *ifaceCache {
	var opts []rwlock.Option
	if debug {
		opts = append(opts, rwlock.WithDebug(logger))
	}
	return &ifaceCache{lock: rwlock.New("ifcache", opts...)}
}

// refresh re-populates the cache from the kernel under a writer
// acquisition.
func (c *ifaceCache) refresh(ctx context.Context) error {
	h, err := c.lock.Begin(ctx, rwlock.Writer)
	if err != nil {
		return err
	}
	defer c.lock.End(h)

	ifaces, err := ipc.Interfaces()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.cached = ifaces
	c.mu.Unlock()
	return nil
}

// get returns the cached interface list under a reader acquisition.
func (c *ifaceCache) get(ctx context.Context) ([]ipc.Interface, error) {
	h, err := c.lock.Begin(ctx, rwlock.Reader)
	if err != nil {
		return nil, err
	}
	defer c.lock.End(h)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cached, nil
}

// waiters reports the lock's current waitlist depth, for metrics exposure.
func (c *ifaceCache) waiters() int {
	return c.lock.Waiters()
}

// runIfaceCacheRefresh refreshes the cache once immediately, then on
// every tick of ifaceRefreshInterval, until ctx is cancelled. After each
// refresh it reports the lock's waitlist depth to collector.
func runIfaceCacheRefresh(ctx context.Context, c *ifaceCache, collector *metrics.Collector, logger *slog.Logger) error {
	if err := c.refresh(ctx); err != nil {
		logger.Warn("initial interface cache refresh failed", slog.String("error", err.Error()))
	}
	collector.SetLockWaiters("ifcache", c.waiters())

	ticker := time.NewTicker(ifaceRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.refresh(ctx); err != nil {
				logger.Warn("interface cache refresh failed", slog.String("error", err.Error()))
			}
			collector.SetLockWaiters("ifcache", c.waiters())
		}
	}
}
