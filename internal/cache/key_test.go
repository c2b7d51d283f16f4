package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeoKeyCoarsensCoordinates(t *testing.T) {
	// Within ±0.005° of the same hundredth, queries share an entry.
	a := GeoKey(47.123, 8.456, 1000, 100, 200)
	b := GeoKey(47.1199, 8.4551, 1000, 100, 200)
	assert.Equal(t, a, b)
	assert.Equal(t, "geo:47.12:8.46:1000:100:200", a)
}

func TestGeoKeyDistinguishesDifferentCells(t *testing.T) {
	a := GeoKey(47.12, 8.46, 1000, 100, 200)
	b := GeoKey(47.13, 8.46, 1000, 100, 200)
	assert.NotEqual(t, a, b)
}

func TestGeoKeyMidpointRoundsAwayFromZero(t *testing.T) {
	// 47.125 is exactly representable in binary, so this pins the midpoint
	// rule: math.Round ties away from zero.
	assert.Equal(t, "geo:47.13:8.46:1000:100:200", GeoKey(47.125, 8.456, 1000, 100, 200))
	assert.Equal(t, "geo:-47.13:8.46:1000:100:200", GeoKey(-47.125, 8.456, 1000, 100, 200))
}

func TestGeoKeyIncludesRadiusAndRange(t *testing.T) {
	a := GeoKey(47.12, 8.46, 1000, 100, 200)
	assert.NotEqual(t, a, GeoKey(47.12, 8.46, 2000, 100, 200))
	assert.NotEqual(t, a, GeoKey(47.12, 8.46, 1000, 101, 200))
	assert.NotEqual(t, a, GeoKey(47.12, 8.46, 1000, 100, 201))
}

func TestIDKeyVerbatim(t *testing.T) {
	assert.Equal(t, "id:KSEA:100:200", IDKey("KSEA", 100, 200))
	assert.NotEqual(t, IDKey("KSEA", 100, 200), IDKey("KPDX", 100, 200))
}
