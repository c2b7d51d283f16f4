// Package fetcher discovers recently updated stations and pulls their
// decoded reports under a throttled, bounded retry policy.
package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/metarwatch/metarwatch/internal/metar"
	"github.com/metarwatch/metarwatch/internal/observability"
	"github.com/metarwatch/metarwatch/internal/store"
	"github.com/metarwatch/metarwatch/pkg/http/client"
)

// Outcome is the terminal result of one station's fetch. Skips and failures
// are surfaced through logs and metrics instead of being swallowed.
type Outcome string

const (
	OutcomeStored  Outcome = "stored"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

const listingPath = "/?C=M;O=D"

var (
	listingEntryRe = regexp.MustCompile(`^<tr><td><a href="([A-Z0-9]{4})\.TXT"`)
	listingDateRe  = regexp.MustCompile(`\d{2}-[A-Za-z]{3}-\d{4} \d{2}:\d{2}`)
)

const listingTimeLayout = "02-Jan-2006 15:04"

type Options struct {
	// Cooldown is the minimum spacing between upstream requests. The
	// limiter is a token bucket with burst 1, so fetches are effectively
	// serialized with this gap; the throttle protects the shared upstream
	// and is not a tunable performance knob.
	Cooldown time.Duration
	// Window bounds discovery to stations whose report file changed within
	// this interval of now.
	Window time.Duration
	// MaxAttempts bounds retries of one station across all transient
	// failure kinds.
	MaxAttempts    int
	ConnectBackoff time.Duration
	// TimeoutBackoffInitial seeds the exponential backoff used after
	// request timeouts.
	TimeoutBackoffInitial time.Duration
	Clock                 clockwork.Clock
}

type Fetcher struct {
	client         *client.Client
	store          store.RecordStore
	metrics        *observability.Metrics
	limiter        *rate.Limiter
	clock          clockwork.Clock
	window         time.Duration
	maxAttempts    int
	connectBackoff time.Duration
	timeoutInitial time.Duration
}

func New(httpClient *client.Client, recordStore store.RecordStore, metrics *observability.Metrics, opts Options) *Fetcher {
	if opts.Window == 0 {
		opts.Window = 30 * time.Minute
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 5
	}
	if opts.ConnectBackoff == 0 {
		opts.ConnectBackoff = 5 * time.Second
	}
	if opts.TimeoutBackoffInitial == 0 {
		opts.TimeoutBackoffInitial = 500 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	limit := rate.Inf
	if opts.Cooldown > 0 {
		limit = rate.Every(opts.Cooldown)
	}

	return &Fetcher{
		client:         httpClient,
		store:          recordStore,
		metrics:        metrics,
		limiter:        rate.NewLimiter(limit, 1),
		clock:          opts.Clock,
		window:         opts.Window,
		maxAttempts:    opts.MaxAttempts,
		connectBackoff: opts.ConnectBackoff,
		timeoutInitial: opts.TimeoutBackoffInitial,
	}
}

// DiscoverRecentStations fetches the decoded-report directory listing and
// returns the codes of stations whose report changed within the window.
func (f *Fetcher) DiscoverRecentStations(ctx context.Context) ([]string, error) {
	resp, err := f.client.Get(ctx, listingPath)
	if err != nil {
		return nil, fmt.Errorf("fetching report listing: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("report listing returned status %d", resp.StatusCode)
	}

	now := f.clock.Now().UTC()
	var stations []string

	scanner := bufio.NewScanner(bytes.NewReader(resp.Body))
	for scanner.Scan() {
		line := scanner.Text()
		m := listingEntryRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		dateStr := listingDateRe.FindString(line)
		if dateStr == "" {
			continue
		}
		modified, err := time.Parse(listingTimeLayout, dateStr)
		if err != nil {
			continue
		}
		if now.Sub(modified) < f.window {
			stations = append(stations, m[1])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning report listing: %w", err)
	}

	log.Debug().Int("station_count", len(stations)).Msg("discovered recently updated stations")
	return stations, nil
}

// FetchStationReport fetches, parses, and stores one station's report.
// Transient network failures are retried up to MaxAttempts with the policy
// from classify; a non-200 status or malformed report is a terminal outcome
// for this station, not an error. The returned error is non-nil only for
// store failures and context cancellation.
func (f *Fetcher) FetchStationReport(ctx context.Context, icao string) (Outcome, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.timeoutInitial
	bo.MaxInterval = 30 * time.Second

	attempts := 0
	for {
		if err := f.limiter.Wait(ctx); err != nil {
			return OutcomeFailed, err
		}

		resp, err := f.client.Get(ctx, "/"+icao+".TXT")
		if err != nil {
			if ctx.Err() != nil {
				return OutcomeFailed, ctx.Err()
			}
			kind := classify(err)
			if kind == failureOther {
				return f.failed(icao, fmt.Errorf("fetching report: %w", err)), nil
			}

			attempts++
			if attempts >= f.maxAttempts {
				return f.failed(icao, fmt.Errorf("giving up after %d attempts: %w", attempts, err)), nil
			}
			f.metrics.FetchRetries.WithLabelValues(string(kind)).Inc()
			log.Debug().Str("icao", icao).Str("reason", string(kind)).Int("attempt", attempts).Msg("retrying station fetch")

			switch kind {
			case failureTimeout:
				if !f.sleep(ctx, bo.NextBackOff()) {
					return OutcomeFailed, ctx.Err()
				}
			case failureConnRefused:
				if !f.sleep(ctx, f.connectBackoff) {
					return OutcomeFailed, ctx.Err()
				}
			case failureConnReset:
				// retry immediately; the limiter still paces the next call
			}
			continue
		}

		if !resp.OK() {
			log.Debug().Str("icao", icao).Int("status", resp.StatusCode).Msg("skipping station, non-200 response")
			f.metrics.ReportFetches.WithLabelValues(string(OutcomeSkipped)).Inc()
			return OutcomeSkipped, nil
		}

		obs, err := metar.Parse(string(resp.Body), icao)
		if err != nil {
			return f.failed(icao, err), nil
		}

		if err := f.store.UploadObservation(ctx, obs); err != nil {
			return OutcomeFailed, fmt.Errorf("storing observation: %w", err)
		}

		f.metrics.ReportFetches.WithLabelValues(string(OutcomeStored)).Inc()
		return OutcomeStored, nil
	}
}

// Run executes one fetch cycle: discovery, then a strictly sequential pass
// over the discovered stations.
func (f *Fetcher) Run(ctx context.Context) error {
	stations, err := f.DiscoverRecentStations(ctx)
	if err != nil {
		return fmt.Errorf("discovering recent stations: %w", err)
	}

	log.Info().Int("station_count", len(stations)).Msg("fetch cycle starting")
	for _, icao := range stations {
		outcome, err := f.FetchStationReport(ctx, icao)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", icao, err)
		}
		log.Debug().Str("icao", icao).Str("outcome", string(outcome)).Msg("station report handled")
	}
	return nil
}

func (f *Fetcher) failed(icao string, err error) Outcome {
	log.Warn().Err(err).Str("icao", icao).Msg("station fetch failed")
	f.metrics.ReportFetches.WithLabelValues(string(OutcomeFailed)).Inc()
	return OutcomeFailed
}

func (f *Fetcher) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-f.clock.After(d):
		return true
	}
}
