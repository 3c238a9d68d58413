package data

import (
	"sync"

	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// MemoryCache is a thread-safe in-memory candle cache.
type MemoryCache struct {
	mu    sync.RWMutex
	cache map[string][]types.OHLCV
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{cache: make(map[string][]types.OHLCV)}
}

// Get retrieves data from the cache if available. The returned slice is a
// copy so callers cannot mutate cached candles.
func (c *MemoryCache) Get(key string) ([]types.OHLCV, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, exists := c.cache[key]
	if !exists {
		return nil, false
	}
	out := make([]types.OHLCV, len(data))
	copy(out, data)
	return out, true
}

// Set stores data in the cache.
func (c *MemoryCache) Set(key string, data []types.OHLCV) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]types.OHLCV, len(data))
	copy(stored, data)
	c.cache[key] = stored
}

// Clear removes all cached data.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string][]types.OHLCV)
}

// Size returns the number of cached entries.
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// CachedProvider wraps another Provider with a cache so repeated loads of
// the same source hit memory instead of disk.
type CachedProvider struct {
	provider Provider
	cache    Cache
}

// NewCachedProvider wraps the given provider with an in-memory cache.
func NewCachedProvider(provider Provider) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    NewMemoryCache(),
	}
}

// GetName returns the name of the underlying provider.
func (p *CachedProvider) GetName() string {
	return p.provider.GetName() + " (cached)"
}

// LoadData loads candles, serving from cache when possible.
func (p *CachedProvider) LoadData(source string) ([]types.OHLCV, error) {
	if data, ok := p.cache.Get(source); ok {
		return data, nil
	}

	data, err := p.provider.LoadData(source)
	if err != nil {
		return nil, err
	}

	p.cache.Set(source, data)
	return data, nil
}

// ValidateData delegates to the underlying provider.
func (p *CachedProvider) ValidateData(data []types.OHLCV) error {
	return p.provider.ValidateData(data)
}
