// Package store persists stations and observations and answers time- and
// geo-bounded queries. Writes are idempotent insert-if-absent operations, so
// repeated uploads of the same record converge without coordination.
package store

import (
	"context"

	"github.com/metarwatch/metarwatch/internal/models"
)

// RecordStore is the persistence capability the ingestion and query paths
// depend on. Any backend offering an atomic insert-if-absent per record, a
// time-range query, and a radius lookup over station locations can
// implement it.
type RecordStore interface {
	// UploadStation inserts the station unless one with the same ICAO code
	// already exists.
	UploadStation(ctx context.Context, station models.Station) error

	// UploadObservation inserts the observation unless one with the same
	// (ICAO, Date) pair already exists.
	UploadObservation(ctx context.Context, obs models.Observation) error

	// IDQuery returns all observations for icao with start <= Date <= end,
	// both bounds inclusive, in store order.
	IDQuery(ctx context.Context, icao string, start, end int64) ([]models.Observation, error)

	// GeoQuery resolves the stations within radiusMeters of (lat, lon) —
	// a station exactly at the radius is included — and returns their
	// observations within [start, end] inclusive.
	GeoQuery(ctx context.Context, lat, lon float64, radiusMeters int, start, end int64) ([]models.Observation, error)
}
