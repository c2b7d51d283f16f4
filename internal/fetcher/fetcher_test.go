package fetcher

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metarwatch/metarwatch/internal/observability"
	"github.com/metarwatch/metarwatch/internal/store"
	"github.com/metarwatch/metarwatch/pkg/http/client"
)

const validReport = "Seattle, WA, United States (KSEA) 47-27N 122-19W\n" +
	"Jan 15, 2024 - 04:00 AM PST / 2024.01.15 1200 UTC\n" +
	"Wind: from the W (270 degrees) at 12 MPH (10 KT):0\n" +
	"Temperature: 59.0 F (15.0 C)\n" +
	"Pressure (altimeter): 29.92 in. Hg (1013 hPa)\n"

const listing = `<html><body><table>
<tr><td><a href="KSEA.TXT">KSEA.TXT</a></td><td align="right">15-Jan-2024 12:05  </td><td align="right">4.0K</td></tr>
<tr><td><a href="KPDX.TXT">KPDX.TXT</a></td><td align="right">15-Jan-2024 11:55  </td><td align="right">3.8K</td></tr>
<tr><td><a href="KBOS.TXT">KBOS.TXT</a></td><td align="right">15-Jan-2024 11:00  </td><td align="right">3.9K</td></tr>
<tr><td><a href="stale.log">stale.log</a></td><td align="right">15-Jan-2024 12:10  </td><td align="right">1.0K</td></tr>
</table></body></html>`

func newTestFetcher(t *testing.T, httpClient *client.Client, opts Options) (*Fetcher, *store.MemStore) {
	t.Helper()
	memStore := store.NewMemStore()
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.ConnectBackoff == 0 {
		opts.ConnectBackoff = time.Millisecond
	}
	if opts.TimeoutBackoffInitial == 0 {
		opts.TimeoutBackoffInitial = time.Millisecond
	}
	return New(httpClient, memStore, observability.NewTestMetrics(), opts), memStore
}

func TestDiscoverRecentStations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(listing))
	}))
	defer srv.Close()

	// 12:20 UTC: KSEA (12:05) and KPDX (11:55) are within 30 minutes,
	// KBOS (11:00) is not, stale.log is not a report entry.
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 15, 12, 20, 0, 0, time.UTC))
	f, _ := newTestFetcher(t,
		client.New(client.Options{BaseURL: srv.URL, Timeout: 5 * time.Second}),
		Options{Clock: clock},
	)

	stations, err := f.DiscoverRecentStations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"KSEA", "KPDX"}, stations)
}

func TestDiscoverRecentStationsListingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f, _ := newTestFetcher(t, client.New(client.Options{BaseURL: srv.URL, Timeout: 5 * time.Second}), Options{})

	_, err := f.DiscoverRecentStations(context.Background())
	require.Error(t, err)
}

func TestFetchStationReportStored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/KSEA.TXT", r.URL.Path)
		_, _ = w.Write([]byte(validReport))
	}))
	defer srv.Close()

	f, memStore := newTestFetcher(t, client.New(client.Options{BaseURL: srv.URL, Timeout: 5 * time.Second}), Options{})

	outcome, err := f.FetchStationReport(context.Background(), "KSEA")
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, outcome)

	observations := memStore.Observations()
	require.Len(t, observations, 1)
	assert.Equal(t, "KSEA", observations[0].ICAO)
	assert.Equal(t, "15.0", observations[0].Temperature)
}

func TestFetchStationReportNon200Skipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f, memStore := newTestFetcher(t, client.New(client.Options{BaseURL: srv.URL, Timeout: 5 * time.Second}), Options{})

	outcome, err := f.FetchStationReport(context.Background(), "XXXX")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Empty(t, memStore.Observations())
}

func TestFetchStationReportMalformedFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("garbage with no collection time"))
	}))
	defer srv.Close()

	f, memStore := newTestFetcher(t, client.New(client.Options{BaseURL: srv.URL, Timeout: 5 * time.Second}), Options{})

	outcome, err := f.FetchStationReport(context.Background(), "KSEA")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Empty(t, memStore.Observations())
}

func TestFetchStationReportTimeoutRetriesBounded(t *testing.T) {
	calls := 0
	httpClient := client.New(client.Options{})
	httpClient.GetFunc = func(_ context.Context, _ string) (*client.Response, error) {
		calls++
		return nil, &net.DNSError{Err: "timed out", IsTimeout: true}
	}

	f, _ := newTestFetcher(t, httpClient, Options{MaxAttempts: 3})

	outcome, err := f.FetchStationReport(context.Background(), "KSEA")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, 3, calls)
}

func TestFetchStationReportRecoversFromReset(t *testing.T) {
	calls := 0
	httpClient := client.New(client.Options{})
	httpClient.GetFunc = func(_ context.Context, _ string) (*client.Response, error) {
		calls++
		if calls == 1 {
			return nil, &net.OpError{Op: "read", Err: os.NewSyscallError("read", syscall.ECONNRESET)}
		}
		return &client.Response{StatusCode: http.StatusOK, Body: []byte(validReport)}, nil
	}

	f, memStore := newTestFetcher(t, httpClient, Options{})

	outcome, err := f.FetchStationReport(context.Background(), "KSEA")
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, outcome)
	assert.Equal(t, 2, calls)
	assert.Len(t, memStore.Observations(), 1)
}

func TestFetchStationReportRecoversFromRefused(t *testing.T) {
	calls := 0
	httpClient := client.New(client.Options{})
	httpClient.GetFunc = func(_ context.Context, _ string) (*client.Response, error) {
		calls++
		if calls == 1 {
			return nil, &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
		}
		return &client.Response{StatusCode: http.StatusOK, Body: []byte(validReport)}, nil
	}

	f, _ := newTestFetcher(t, httpClient, Options{})

	outcome, err := f.FetchStationReport(context.Background(), "KSEA")
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, outcome)
	assert.Equal(t, 2, calls)
}

func TestRunFetchesEachDiscoveredStation(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			_, _ = w.Write([]byte(listing))
			return
		}
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(validReport))
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 15, 12, 20, 0, 0, time.UTC))
	f, memStore := newTestFetcher(t,
		client.New(client.Options{BaseURL: srv.URL, Timeout: 5 * time.Second}),
		Options{Clock: clock},
	)

	require.NoError(t, f.Run(context.Background()))
	assert.Equal(t, []string{"/KSEA.TXT", "/KPDX.TXT"}, paths)
	assert.Len(t, memStore.Observations(), 2)
}
