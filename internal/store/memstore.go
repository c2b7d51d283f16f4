package store

import (
	"context"
	"sync"

	"github.com/metarwatch/metarwatch/internal/models"
)

// MemStore is an in-memory RecordStore with the same dedup and range
// semantics as DynamoStore. It backs tests and local runs without DynamoDB.
type MemStore struct {
	mu           sync.RWMutex
	stations     []models.Station
	stationSeen  map[string]bool
	observations []models.Observation
	obsSeen      map[obsKey]bool
}

type obsKey struct {
	icao string
	date int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		stationSeen: make(map[string]bool),
		obsSeen:     make(map[obsKey]bool),
	}
}

func (s *MemStore) UploadStation(_ context.Context, station models.Station) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stationSeen[station.ICAO] {
		return nil
	}
	s.stationSeen[station.ICAO] = true
	s.stations = append(s.stations, station)
	return nil
}

func (s *MemStore) UploadObservation(_ context.Context, obs models.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := obsKey{icao: obs.ICAO, date: obs.Date}
	if s.obsSeen[key] {
		return nil
	}
	s.obsSeen[key] = true
	s.observations = append(s.observations, obs)
	return nil
}

func (s *MemStore) IDQuery(_ context.Context, icao string, start, end int64) ([]models.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.Observation
	for _, obs := range s.observations {
		if obs.ICAO == icao && obs.Date >= start && obs.Date <= end {
			matched = append(matched, obs)
		}
	}
	return matched, nil
}

func (s *MemStore) GeoQuery(_ context.Context, lat, lon float64, radiusMeters int, start, end int64) ([]models.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inRadius := make(map[string]bool)
	for _, station := range s.stations {
		if station.DistanceMeters(lat, lon) <= float64(radiusMeters) {
			inRadius[station.ICAO] = true
		}
	}

	var matched []models.Observation
	for _, obs := range s.observations {
		if inRadius[obs.ICAO] && obs.Date >= start && obs.Date <= end {
			matched = append(matched, obs)
		}
	}
	return matched, nil
}

// Stations returns the stored stations; test helper.
func (s *MemStore) Stations() []models.Station {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Station(nil), s.stations...)
}

// Observations returns the stored observations; test helper.
func (s *MemStore) Observations() []models.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Observation(nil), s.observations...)
}
