package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"github.com/metarwatch/metarwatch/internal/models"
)

// stationDirectory keeps the full station catalog in memory for radius
// resolution, reloading from DynamoDB when the snapshot goes stale. The
// catalog changes roughly weekly, so a generous TTL is safe.
type stationDirectory struct {
	client DynamoDBClient
	table  string
	ttl    time.Duration

	mu          sync.RWMutex
	stations    []models.Station
	lastUpdated time.Time
}

func newStationDirectory(client DynamoDBClient, table string, ttl time.Duration) *stationDirectory {
	return &stationDirectory{
		client: client,
		table:  table,
		ttl:    ttl,
	}
}

func (d *stationDirectory) Stations(ctx context.Context) ([]models.Station, error) {
	d.mu.RLock()
	if d.stations != nil && time.Since(d.lastUpdated) <= d.ttl {
		stations := d.stations
		d.mu.RUnlock()
		return stations, nil
	}
	d.mu.RUnlock()

	log.Debug().Str("table", d.table).Msg("station directory stale, scanning")

	var stations []models.Station
	var startKey map[string]types.AttributeValue
	for {
		out, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(d.table),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scanning stations: %w", err)
		}

		var page []models.Station
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshaling stations: %w", err)
		}
		stations = append(stations, page...)

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	d.mu.Lock()
	d.stations = stations
	d.lastUpdated = time.Now()
	d.mu.Unlock()

	log.Debug().Int("station_count", len(stations)).Msg("station directory refreshed")
	return stations, nil
}
