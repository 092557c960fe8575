package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
)

// Cache memoizes compilation results by file name and source hash.
// Safe for concurrent use.
type Cache struct {
	results *lru.Cache
	opts    Options

	hits, misses atomic.Int64
}

// NewCache creates a cache holding at most size results compiled with opts.
func NewCache(size int, opts Options) (*Cache, error) {
	results, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{results: results, opts: opts}, nil
}

func cacheKey(filename, source string) string {
	sum := sha256.Sum256([]byte(source))
	return filename + "@" + hex.EncodeToString(sum[:])
}

// Compile returns the cached result for this exact source, compiling it
// on a miss.
func (c *Cache) Compile(filename, source string) *Result {
	key := cacheKey(filename, source)
	if cached, ok := c.results.Get(key); ok {
		c.hits.Add(1)
		return cached.(*Result)
	}

	c.misses.Add(1)
	res := Compile(filename, source, c.opts)
	c.results.Add(key, res)
	return res
}

// Len returns the number of cached results.
func (c *Cache) Len() int { return c.results.Len() }

// Stats returns the hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) { return c.hits.Load(), c.misses.Load() }

// Purge drops every cached result.
func (c *Cache) Purge() { c.results.Purge() }
