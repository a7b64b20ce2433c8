package models

import (
	"context"
	"time"

	"github.com/Protocol-Lattice/omnichat/src/cache"
)

// CachedLLM wraps an Invoker and caches successful completions.
type CachedLLM struct {
	Invoker Invoker
	Cache   *cache.LRU[string]
}

// NewCachedLLM creates a caching decorator holding up to size completions for ttl.
func NewCachedLLM(inv Invoker, size int, ttl time.Duration) *CachedLLM {
	return &CachedLLM{
		Invoker: inv,
		Cache:   cache.NewLRU[string](size, ttl),
	}
}

// Invoke serves identical prompt+attachment requests from the cache.
func (c *CachedLLM) Invoke(ctx context.Context, prompt string, files []File) (string, error) {
	parts := make([][]byte, 0, 1+3*len(files))
	parts = append(parts, []byte(prompt))
	for _, f := range files {
		parts = append(parts, []byte(f.Name), []byte(f.MIME), []byte(f.Payload))
	}
	key := cache.HashKey(parts...)

	if val, ok := c.Cache.Get(key); ok {
		return val, nil
	}
	res, err := c.Invoker.Invoke(ctx, prompt, files)
	if err != nil {
		return "", err
	}
	c.Cache.Set(key, res)
	return res, nil
}

// Close forwards to the wrapped invoker when it holds resources.
func (c *CachedLLM) Close() error {
	if cl, ok := c.Invoker.(interface{ Close() error }); ok {
		return cl.Close()
	}
	return nil
}

var _ Invoker = (*CachedLLM)(nil)
