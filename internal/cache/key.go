package cache

import (
	"fmt"
	"math"
	"strconv"
)

// Geo keys round coordinates to two decimals (±0.005° is at most ~560 m)
// so nearby queries share an entry. The store always sees the caller's
// exact coordinates; only the cache key is coarsened. math.Round ties away
// from zero, so 47.125 keys as "47.13".
func GeoKey(lat, lon float64, radiusMeters int, start, end int64) string {
	return fmt.Sprintf("geo:%s:%s:%d:%d:%d",
		formatCoord(roundCoord(lat)),
		formatCoord(roundCoord(lon)),
		radiusMeters, start, end)
}

// ID keys are verbatim; there is no useful coarsening for an exact code.
func IDKey(icao string, start, end int64) string {
	return fmt.Sprintf("id:%s:%d:%d", icao, start, end)
}

func roundCoord(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
