// Package catalog harvests the master station list and converts its
// fixed-column records into station documents.
package catalog

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/metarwatch/metarwatch/internal/models"
	"github.com/metarwatch/metarwatch/internal/observability"
	"github.com/metarwatch/metarwatch/internal/store"
	"github.com/metarwatch/metarwatch/pkg/http/client"
)

// Archiver stores a raw catalog snapshot after a successful harvest.
type Archiver interface {
	PutSnapshot(ctx context.Context, body []byte) error
}

// Updater fetches stations.txt and uploads one station per well-formed
// line. Uploads are insert-if-absent, so re-harvesting is safe. A fetch
// failure propagates to the caller; the harvest cadence is low enough that
// the next scheduled run is the retry.
type Updater struct {
	client  *client.Client
	path    string
	store   store.RecordStore
	archive Archiver
	metrics *observability.Metrics
}

type Options struct {
	// Path of stations.txt relative to the client's base URL.
	Path string
	// Archive receives the raw feed after a successful harvest; nil
	// disables snapshots.
	Archive Archiver
}

func NewUpdater(httpClient *client.Client, recordStore store.RecordStore, metrics *observability.Metrics, opts Options) *Updater {
	if opts.Path == "" {
		opts.Path = "/docs/metar/stations.txt"
	}
	return &Updater{
		client:  httpClient,
		path:    opts.Path,
		store:   recordStore,
		archive: opts.Archive,
		metrics: metrics,
	}
}

// HarvestStations downloads and processes the master station list.
func (u *Updater) HarvestStations(ctx context.Context) error {
	resp, err := u.client.Get(ctx, u.path)
	if err != nil {
		return fmt.Errorf("fetching station catalog: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("station catalog returned status %d", resp.StatusCode)
	}

	uploaded := 0
	scanner := bufio.NewScanner(bytes.NewReader(resp.Body))
	for scanner.Scan() {
		station, ok := ParseStationLine(scanner.Text())
		if !ok {
			u.metrics.CatalogLinesSkipped.Inc()
			continue
		}
		if err := u.store.UploadStation(ctx, station); err != nil {
			return fmt.Errorf("uploading station %s: %w", station.ICAO, err)
		}
		u.metrics.StationsHarvested.Inc()
		uploaded++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning station catalog: %w", err)
	}

	if u.archive != nil {
		if err := u.archive.PutSnapshot(ctx, resp.Body); err != nil {
			log.Warn().Err(err).Msg("archiving catalog snapshot failed")
		}
	}

	log.Info().Int("station_count", uploaded).Msg("station catalog harvested")
	return nil
}

// Fixed column offsets in stations.txt: the ICAO code at [20:24], latitude
// degrees/minutes at [39:41] and [42:44], longitude degrees/minutes at
// [47:50] and [51:53]. Comment lines start with '!'; header lines carry
// the word STATION; section markers leave the coordinate columns blank.
const (
	icaoStart   = 20
	icaoEnd     = 24
	latDegStart = 39
	latDegEnd   = 41
	latMinStart = 42
	latMinEnd   = 44
	lonDegStart = 47
	lonDegEnd   = 50
	lonMinStart = 51
	lonMinEnd   = 53
)

// ParseStationLine converts one catalog line into a station record.
// ok=false means the line failed the well-formedness check and is skipped
// without error.
func ParseStationLine(line string) (models.Station, bool) {
	if len(line) < lonMinEnd || strings.HasPrefix(line, "!") || strings.Contains(line, "STATION") {
		return models.Station{}, false
	}

	latDeg, ok1 := parseCoordColumn(line[latDegStart:latDegEnd])
	latMin, ok2 := parseCoordColumn(line[latMinStart:latMinEnd])
	lonDeg, ok3 := parseCoordColumn(line[lonDegStart:lonDegEnd])
	lonMin, ok4 := parseCoordColumn(line[lonMinStart:lonMinEnd])
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return models.Station{}, false
	}

	lat := round6(float64(latDeg) + float64(latMin)/60)
	lon := round6(float64(lonDeg) + float64(lonMin)/60)

	return models.Station{
		ICAO:     line[icaoStart:icaoEnd],
		Location: models.NewGeoPoint(lat, lon),
	}, true
}

// parseCoordColumn tolerates right-aligned values; a blank column fails.
func parseCoordColumn(col string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(col))
	if err != nil {
		return 0, false
	}
	return v, true
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
