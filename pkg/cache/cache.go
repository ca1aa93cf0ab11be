// Package cache wraps a size-bounded LRU with hit and miss metrics.
package cache

import (
	"sync"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/Code-Hex/go-generics-cache/policy/lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheMetrics = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "db_cache",
		Help: "Cache lookups by cache name and result",
	},
	[]string{
		"name",
		"result",
	},
)

type Cache[K comparable, V any] struct {
	cache      *cache.Cache[K, V]
	metricName string
	size       int
	// loading serialises loaders so a missing key is computed once.
	loading sync.Mutex
}

func NewLRUCache[K comparable, V any](size int, metricName string) *Cache[K, V] {
	return &Cache[K, V]{
		cache:      cache.New(cache.AsLRU[K, V](lru.WithCapacity(size))),
		metricName: metricName,
		size:       size,
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	val, ok := c.cache.Get(key)
	if ok {
		cacheMetrics.WithLabelValues(c.metricName, "hit").Inc()
		return val, ok
	}
	cacheMetrics.WithLabelValues(c.metricName, "miss").Inc()
	return val, ok
}

func (c *Cache[K, V]) Set(key K, val V, opts ...cache.ItemOption) {
	c.cache.Set(key, val, opts...)
}

func (c *Cache[K, V]) Delete(key K) {
	c.cache.Delete(key)
}

// GetOrLoad returns the cached value of key or stores the result of load.
// Errors are returned as is and nothing is cached.
func (c *Cache[K, V]) GetOrLoad(key K, load func() (V, error), opts ...cache.ItemOption) (V, error) {
	if val, ok := c.Get(key); ok {
		return val, nil
	}
	c.loading.Lock()
	defer c.loading.Unlock()
	if val, ok := c.cache.Get(key); ok {
		return val, nil
	}
	val, err := load()
	if err != nil {
		return val, err
	}
	c.cache.Set(key, val, opts...)
	return val, nil
}

// Keys returns the keys of the cache. The order depends on the policy.
func (c *Cache[K, V]) Keys() []K {
	return c.cache.Keys()
}

func (c *Cache[K, V]) Len() int {
	return len(c.cache.Keys())
}

var WithExpiration = cache.WithExpiration
