package models

import "math"

// GeoPoint is a GeoJSON point, coordinates ordered [lon, lat].
type GeoPoint struct {
	Type        string    `json:"type" dynamodbav:"type"`
	Coordinates []float64 `json:"coordinates" dynamodbav:"coordinates"`
}

// NewGeoPoint builds a GeoJSON point from decimal-degree coordinates.
func NewGeoPoint(lat, lon float64) GeoPoint {
	return GeoPoint{
		Type:        "Point",
		Coordinates: []float64{lon, lat},
	}
}

func (p GeoPoint) Lat() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

func (p GeoPoint) Lon() float64 {
	if len(p.Coordinates) < 1 {
		return 0
	}
	return p.Coordinates[0]
}

// Station is one aviation weather station from the master catalog.
// The ICAO code is the natural key; a station is written once and never
// updated afterwards.
type Station struct {
	ICAO     string   `json:"icao" dynamodbav:"icao"`
	Location GeoPoint `json:"location" dynamodbav:"location"`
}

// DistanceMeters returns the haversine distance between the station and the
// given coordinates.
func (s Station) DistanceMeters(lat, lon float64) float64 {
	return HaversineMeters(lat, lon, s.Location.Lat(), s.Location.Lon())
}

const earthRadiusMeters = 6371000.0

// HaversineMeters computes the great-circle distance between two
// decimal-degree coordinate pairs.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
