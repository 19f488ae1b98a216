package search

import (
	"context"
	"strconv"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Cache memoizes recipe results by key. Concurrent requests for the same key share one
// execution; failed executions are not cached.
type Cache struct {
	results *lru.Cache[string, Result]
	group   singleflight.Group
	epoch   atomic.Uint64
	misses  atomic.Int64
}

// NewCache creates a cache holding up to size results
func NewCache(size int) (*Cache, error) {
	results, err := lru.New[string, Result](size)
	if err != nil {
		return nil, err
	}
	return &Cache{results: results}, nil
}

// Get returns the cached result for key or runs fn to produce it. The shared execution
// runs on a context the callers cannot cancel; a caller whose ctx is done stops waiting
// and gets ctx.Err() while the other callers still receive the result.
func (c *Cache) Get(ctx context.Context, key string, fn func(context.Context) (Result, error)) (Result, error) {
	epoch := c.epoch.Load()
	flightKey := strconv.FormatUint(epoch, 10) + "|" + key
	if r, ok := c.results.Get(flightKey); ok {
		return r, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey, func() (any, error) {
		if r, ok := c.results.Get(flightKey); ok {
			return r, nil
		}
		c.misses.Add(1)
		r, err := fn(shared)
		if err != nil {
			return nil, err
		}
		if c.epoch.Load() == epoch {
			c.results.Add(flightKey, r)
		}
		return r, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Result), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Purge drops all results. Executions still running are not stored.
func (c *Cache) Purge() {
	c.epoch.Add(1)
	c.results.Purge()
}

// Len returns the number of cached results
func (c *Cache) Len() int {
	return c.results.Len()
}

// Executions returns how many times a result had to be computed
func (c *Cache) Executions() int64 {
	return c.misses.Load()
}
