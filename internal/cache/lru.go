// Package cache provides caching utilities for the inference service.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/usestring/superkart-inference/pkg/types"
)

// PredictionCache provides thread-safe LRU caching of predictions keyed by
// model version and feature vector.
type PredictionCache struct {
	cache *lru.Cache[string, float64]
}

// NewPredictionCache creates a new LRU cache with the specified maximum number of items.
func NewPredictionCache(maxItems int) (*PredictionCache, error) {
	c, err := lru.New[string, float64](maxItems)
	if err != nil {
		return nil, err
	}
	return &PredictionCache{cache: c}, nil
}

// Key builds the cache key of a vector under a model version.
func Key(version string, fv types.FeatureVector) string {
	return version + "#" + fv.Key()
}

// Get retrieves a prediction from the cache.
// Returns the prediction and true if found, 0 and false otherwise.
// A nil cache never hits.
func (c *PredictionCache) Get(key string) (float64, bool) {
	if c == nil {
		return 0, false
	}
	return c.cache.Get(key)
}

// Put adds or updates a prediction in the cache.
func (c *PredictionCache) Put(key string, y float64) {
	if c == nil {
		return
	}
	c.cache.Add(key, y)
}

// Purge removes all predictions.
func (c *PredictionCache) Purge() {
	if c == nil {
		return
	}
	c.cache.Purge()
}

// Len returns the current number of items in the cache.
func (c *PredictionCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
