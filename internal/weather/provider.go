package weather

import (
	"context"
	"errors"
)

// ErrNoReport is returned by FetchOne when the station has no current report.
var ErrNoReport = errors.New("no current report for station")

// Provider abstracts a remote METAR source (e.g. the ADDS dataserver).
//
// Transport failures are returned as errors. Malformed or missing data for a
// single quantity is reported through the record's fields instead.
type Provider interface {
	Name() string
	FetchOne(ctx context.Context, code string) (*Metar, error)
	// FetchBatch returns the most recent record for each code that has one.
	// Stations with no current report are simply left out.
	FetchBatch(ctx context.Context, codes []string) ([]*Metar, error)
	// FetchRegion returns the most recent record for every station in region.
	FetchRegion(ctx context.Context, region string) ([]*Metar, error)
}
