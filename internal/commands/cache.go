package commands

import (
	"sync"
	"time"
)

type cacheItem struct {
	chartData  []byte
	expiration time.Time
}

// chartCache keeps rendered charts for a few minutes so repeated requests
// for the same coin, currency and period skip the history call.
type chartCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]cacheItem
}

func newChartCache(ttl time.Duration) *chartCache {
	return &chartCache{ttl: ttl, items: make(map[string]cacheItem)}
}

func (c *chartCache) get(key string, now time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found {
		return nil, false
	}
	if !now.Before(item.expiration) {
		delete(c.items, key)
		return nil, false
	}
	return item.chartData, true
}

func (c *chartCache) set(key string, chartData []byte, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheItem{chartData: chartData, expiration: now.Add(c.ttl)}
}
