package store

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metarwatch/metarwatch/internal/models"
)

func TestUploadStationDeduplicates(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	station := models.Station{ICAO: "KSEA", Location: models.NewGeoPoint(47.45, 122.316667)}
	require.NoError(t, s.UploadStation(ctx, station))
	require.NoError(t, s.UploadStation(ctx, station))

	assert.Len(t, s.Stations(), 1)
}

func TestUploadObservationDeduplicates(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	obs := models.Observation{ICAO: "KSEA", Date: 150, Temperature: "15.0"}
	require.NoError(t, s.UploadObservation(ctx, obs))
	require.NoError(t, s.UploadObservation(ctx, obs))

	// A different timestamp for the same station is a new record.
	require.NoError(t, s.UploadObservation(ctx, models.Observation{ICAO: "KSEA", Date: 151}))

	assert.Len(t, s.Observations(), 2)
}

func TestIDQueryBoundsInclusive(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	for _, date := range []int64{99, 100, 150, 200, 201} {
		require.NoError(t, s.UploadObservation(ctx, models.Observation{ICAO: "KSEA", Date: date}))
	}
	require.NoError(t, s.UploadObservation(ctx, models.Observation{ICAO: "KPDX", Date: 150}))

	got, err := s.IDQuery(ctx, "KSEA", 100, 200)
	require.NoError(t, err)

	var dates []int64
	for _, obs := range got {
		assert.Equal(t, "KSEA", obs.ICAO)
		dates = append(dates, obs.Date)
	}
	assert.Equal(t, []int64{100, 150, 200}, dates)
}

func TestGeoQueryRadiusBoundary(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	// Station roughly 1112m north of the query point.
	require.NoError(t, s.UploadStation(ctx, models.Station{ICAO: "AAAA", Location: models.NewGeoPoint(0.01, 0)}))
	require.NoError(t, s.UploadObservation(ctx, models.Observation{ICAO: "AAAA", Date: 150}))

	distance := models.HaversineMeters(0, 0, 0.01, 0)

	// Radius at (or just past) the station's distance includes it.
	got, err := s.GeoQuery(ctx, 0, 0, int(math.Ceil(distance)), 100, 200)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// A radius short of the distance excludes it.
	got, err = s.GeoQuery(ctx, 0, 0, int(distance)-1, 100, 200)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGeoQueryFiltersByTimeAndRadius(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.UploadStation(ctx, models.Station{ICAO: "NEAR", Location: models.NewGeoPoint(0.001, 0)}))
	require.NoError(t, s.UploadStation(ctx, models.Station{ICAO: "FARA", Location: models.NewGeoPoint(1, 0)}))

	require.NoError(t, s.UploadObservation(ctx, models.Observation{ICAO: "NEAR", Date: 150}))
	require.NoError(t, s.UploadObservation(ctx, models.Observation{ICAO: "NEAR", Date: 500}))
	require.NoError(t, s.UploadObservation(ctx, models.Observation{ICAO: "FARA", Date: 150}))

	got, err := s.GeoQuery(ctx, 0, 0, 1000, 100, 200)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "NEAR", got[0].ICAO)
	assert.Equal(t, int64(150), got[0].Date)
}
