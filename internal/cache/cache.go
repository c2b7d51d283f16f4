// Package cache provides the query-result cache in front of the record
// store, plus the key normalization that decides which queries share an
// entry.
package cache

import (
	"context"

	"github.com/metarwatch/metarwatch/internal/models"
)

// DefaultTTL approximates the upstream 30-minute report refresh cadence, so
// a cached answer rarely outlives the freshness window of its source data.
const DefaultTTL = 1700 // seconds

// QueryCache stores observation lists under normalized query keys. Get
// returns ok=false on a miss; a miss is expected control flow, not an error.
// Entry lifetime is fixed per implementation at construction time.
type QueryCache interface {
	Get(ctx context.Context, key string) ([]models.Observation, bool, error)
	Set(ctx context.Context, key string, observations []models.Observation) error
}
