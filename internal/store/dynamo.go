package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"github.com/metarwatch/metarwatch/internal/models"
)

// DynamoDBClient is the slice of the DynamoDB API the store uses.
type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// NewDynamoClient creates a DynamoDB client, honoring DYNAMODB_ENDPOINT for
// local development.
func NewDynamoClient(ctx context.Context) (*dynamodb.Client, error) {
	if endpoint := os.Getenv("DYNAMODB_ENDPOINT"); endpoint != "" {
		log.Debug().Str("endpoint", endpoint).Msg("Using local DynamoDB endpoint")
		cfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion("local"),
			awsconfig.WithClientLogMode(aws.LogRetries),
		)
		if err != nil {
			return nil, err
		}
		return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		}), nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// DynamoStore implements RecordStore over two DynamoDB tables: a stations
// table keyed by icao and an observations table keyed by (icao, date).
// Dedup relies on conditional puts, which DynamoDB applies atomically per
// item, so concurrent uploads of the same record need no locking here.
type DynamoStore struct {
	client            DynamoDBClient
	stationsTable     string
	observationsTable string
	directory         *stationDirectory
}

type DynamoStoreOptions struct {
	StationsTable     string
	ObservationsTable string
	// DirectoryTTL bounds how long the in-memory station snapshot used for
	// radius resolution may lag behind the stations table.
	DirectoryTTL time.Duration
}

func NewDynamoStore(client DynamoDBClient, opts DynamoStoreOptions) *DynamoStore {
	if opts.StationsTable == "" {
		opts.StationsTable = "metarwatch-stations"
	}
	if opts.ObservationsTable == "" {
		opts.ObservationsTable = "metarwatch-observations"
	}
	if opts.DirectoryTTL == 0 {
		opts.DirectoryTTL = 6 * time.Hour
	}
	return &DynamoStore{
		client:            client,
		stationsTable:     opts.StationsTable,
		observationsTable: opts.ObservationsTable,
		directory:         newStationDirectory(client, opts.StationsTable, opts.DirectoryTTL),
	}
}

func (s *DynamoStore) UploadStation(ctx context.Context, station models.Station) error {
	item, err := attributevalue.MarshalMap(station)
	if err != nil {
		return fmt.Errorf("marshaling station %s: %w", station.ICAO, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.stationsTable),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(icao)"),
	})
	if isConditionalCheckFailed(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("putting station %s: %w", station.ICAO, err)
	}
	return nil
}

func (s *DynamoStore) UploadObservation(ctx context.Context, obs models.Observation) error {
	item, err := attributevalue.MarshalMap(obs)
	if err != nil {
		return fmt.Errorf("marshaling observation %s/%d: %w", obs.ICAO, obs.Date, err)
	}

	// "date" is a reserved word in DynamoDB expressions, hence the alias.
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.observationsTable),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(icao) AND attribute_not_exists(#d)"),
		ExpressionAttributeNames: map[string]string{
			"#d": "date",
		},
	})
	if isConditionalCheckFailed(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("putting observation %s/%d: %w", obs.ICAO, obs.Date, err)
	}
	return nil
}

func (s *DynamoStore) IDQuery(ctx context.Context, icao string, start, end int64) ([]models.Observation, error) {
	var observations []models.Observation
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.observationsTable),
			KeyConditionExpression: aws.String("icao = :icao AND #d BETWEEN :start AND :end"),
			ExpressionAttributeNames: map[string]string{
				"#d": "date",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":icao":  &types.AttributeValueMemberS{Value: icao},
				":start": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", start)},
				":end":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", end)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("querying observations for %s: %w", icao, err)
		}

		var page []models.Observation
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshaling observations for %s: %w", icao, err)
		}
		observations = append(observations, page...)

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return observations, nil
}

func (s *DynamoStore) GeoQuery(ctx context.Context, lat, lon float64, radiusMeters int, start, end int64) ([]models.Observation, error) {
	stations, err := s.directory.Stations(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving stations in radius: %w", err)
	}

	var observations []models.Observation
	for _, station := range stations {
		if station.DistanceMeters(lat, lon) > float64(radiusMeters) {
			continue
		}
		matched, err := s.IDQuery(ctx, station.ICAO, start, end)
		if err != nil {
			return nil, err
		}
		observations = append(observations, matched...)
	}
	return observations, nil
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
