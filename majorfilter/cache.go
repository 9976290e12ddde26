package majorfilter

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

type similarityKey struct {
	a, b      string
	threshold float64
}

// cachedSimilarity memoizes scores in a bounded LRU.
type cachedSimilarity struct {
	inner Similarity
	cache *lru.Cache[similarityKey, float64]
}

func newCachedSimilarity(inner Similarity, size int) (*cachedSimilarity, error) {
	c, err := lru.New[similarityKey, float64](size)
	if err != nil {
		return nil, fmt.Errorf("similarity cache: %w", err)
	}
	return &cachedSimilarity{inner: inner, cache: c}, nil
}

func (c *cachedSimilarity) Score(a, b string, threshold float64) float64 {
	key := similarityKey{a: a, b: b, threshold: threshold}
	if v, ok := c.cache.Get(key); ok {
		return v
	}
	v := c.inner.Score(a, b, threshold)
	c.cache.Add(key, v)
	return v
}

// Len returns the number of memoized pairs.
func (c *cachedSimilarity) Len() int {
	return c.cache.Len()
}
