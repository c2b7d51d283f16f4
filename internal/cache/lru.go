package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/metarwatch/metarwatch/internal/models"
)

// LRU is an in-process QueryCache for single-node deployments and tests.
// Entries expire after the TTL given at construction.
type LRU struct {
	entries *expirable.LRU[string, []models.Observation]
}

func NewLRU(size int, ttl time.Duration) *LRU {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = DefaultTTL * time.Second
	}
	return &LRU{
		entries: expirable.NewLRU[string, []models.Observation](size, nil, ttl),
	}
}

func (c *LRU) Get(_ context.Context, key string) ([]models.Observation, bool, error) {
	observations, ok := c.entries.Get(key)
	return observations, ok, nil
}

func (c *LRU) Set(_ context.Context, key string, observations []models.Observation) error {
	c.entries.Add(key, observations)
	return nil
}
