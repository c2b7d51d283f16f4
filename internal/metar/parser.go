// Package metar parses decoded METAR report text into observations.
// Parsing is pure: no network, no persistence, no clock.
package metar

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/metarwatch/metarwatch/internal/models"
)

// MalformedReportError indicates report text that cannot yield an
// observation, typically a missing or garbled collection-time line.
type MalformedReportError struct {
	ICAO    string
	Message string
	Err     error
}

func (e *MalformedReportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed report for %s: %s: %v", e.ICAO, e.Message, e.Err)
	}
	return fmt.Sprintf("malformed report for %s: %s", e.ICAO, e.Message)
}

func (e *MalformedReportError) Unwrap() error {
	return e.Err
}

// collectedLayout matches the second report line's collection time, e.g.
// "Jan 15, 2024 - 12:00 PM EST / 2024.01.15 1200 UTC". The token after
// "/ " is authoritative and is parsed as UTC.
const collectedLayout = "2006.01.02 1504 UTC"

var (
	temperatureRe   = regexp.MustCompile(`(-?\d+(?:\.\d+)?) C`)
	pressureRe      = regexp.MustCompile(`(-?\d+) hPa`)
	windDirectionRe = regexp.MustCompile(`(\d+) degrees`)
	windSpeedRe     = regexp.MustCompile(`(\d+) KT`)
)

// Parse extracts a structured observation from a decoded report. Fields the
// report does not carry keep the empty-string sentinel; only a missing or
// unparseable collection time is an error.
func Parse(raw string, icao string) (models.Observation, error) {
	obs := models.Observation{ICAO: icao}

	lines := strings.Split(raw, "\n")
	if len(lines) < 2 {
		return obs, &MalformedReportError{ICAO: icao, Message: "missing collection time line"}
	}

	collected, err := parseCollectionTime(lines[1])
	if err != nil {
		return obs, &MalformedReportError{ICAO: icao, Message: "bad collection time", Err: err}
	}
	obs.Date = collected.Unix()

	for _, line := range lines {
		switch {
		case obs.Temperature == "" && strings.HasPrefix(line, "Temperature"):
			if m := temperatureRe.FindStringSubmatch(line); m != nil {
				obs.Temperature = m[1]
			}
		case obs.Pressure == "" && strings.HasPrefix(line, "Pressure"):
			if m := pressureRe.FindStringSubmatch(line); m != nil {
				obs.Pressure = m[1]
			}
		case obs.WindSpeed == "" && strings.HasPrefix(line, "Wind:"):
			parseWind(line, &obs)
		}
	}

	return obs, nil
}

func parseCollectionTime(line string) (time.Time, error) {
	_, token, found := strings.Cut(line, "/ ")
	if !found {
		return time.Time{}, fmt.Errorf("no %q separator in %q", "/ ", line)
	}
	return time.Parse(collectedLayout, strings.TrimSpace(token))
}

func parseWind(line string, obs *models.Observation) {
	if strings.Contains(line, "Calm") {
		obs.WindSpeed = "0"
		return
	}
	if m := windDirectionRe.FindStringSubmatch(line); m != nil {
		// "070 degrees" is reported with leading zeros; store "70".
		obs.WindDirection = strings.TrimLeft(m[1], "0")
	}
	if m := windSpeedRe.FindStringSubmatch(line); m != nil {
		obs.WindSpeed = m[1]
	}
}
