package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/metarwatch/metarwatch/internal/models"
)

const keyPrefix = "metarwatch:"

// Memcached implements QueryCache over memcached with JSON-encoded values.
type Memcached struct {
	client *memcache.Client
	ttl    int32
}

// NewMemcached creates a Memcached cache. addrs is a comma-separated server
// list; ttl is the per-entry lifetime, DefaultTTL seconds if zero.
func NewMemcached(addrs string, timeout time.Duration, ttl time.Duration) *Memcached {
	servers := splitAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}

	ttlSec := int32(ttl.Seconds())
	if ttlSec <= 0 {
		ttlSec = DefaultTTL
	}
	return &Memcached{client: client, ttl: ttlSec}
}

func splitAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (c *Memcached) Get(ctx context.Context, key string) ([]models.Observation, bool, error) {
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}
	item, err := c.client.Get(keyPrefix + key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("memcached get: %w", err)
	}

	var observations []models.Observation
	if err := json.Unmarshal(item.Value, &observations); err != nil {
		return nil, false, fmt.Errorf("decoding cached result: %w", err)
	}
	return observations, true, nil
}

func (c *Memcached) Set(ctx context.Context, key string, observations []models.Observation) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	raw, err := json.Marshal(observations)
	if err != nil {
		return fmt.Errorf("encoding result for cache: %w", err)
	}
	return c.client.Set(&memcache.Item{
		Key:        keyPrefix + key,
		Value:      raw,
		Expiration: c.ttl,
	})
}

// Ping checks memcached reachability for health checks.
func (c *Memcached) Ping() error {
	return c.client.Ping()
}

func (c *Memcached) Close() error {
	return c.client.Close()
}
