package providers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-lights/internal/weather"
)

// DefaultADDSBaseURL is the NOAA Aviation Weather Center ADDS dataserver.
const DefaultADDSBaseURL = "https://aviationweather.gov/adds/dataserver_current/httpparam"

// ADDSProvider implements weather.Provider against the ADDS XML dataserver.
type ADDSProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

var _ weather.Provider = (*ADDSProvider)(nil)

// NewADDSProvider builds a provider. An empty baseURL selects
// DefaultADDSBaseURL.
func NewADDSProvider(client *http.Client, baseURL string, maxRetries int) *ADDSProvider {
	if baseURL == "" {
		baseURL = DefaultADDSBaseURL
	}
	return &ADDSProvider{
		name:    "adds",
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      maxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: newCircuitBreaker("adds"),
	}
}

func (p *ADDSProvider) Name() string {
	return p.name
}

// FetchOne returns the most recent METAR for a single station.
func (p *ADDSProvider) FetchOne(ctx context.Context, code string) (*weather.Metar, error) {
	metars, err := p.retrieve(ctx, "mostRecent", code)
	if err != nil {
		return nil, err
	}
	if len(metars) == 0 {
		return nil, fmt.Errorf("%s: %w", code, weather.ErrNoReport)
	}
	return metars[0], nil
}

// FetchBatch returns the most recent METAR for each station in codes that
// has one.
func (p *ADDSProvider) FetchBatch(ctx context.Context, codes []string) ([]*weather.Metar, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	return p.retrieve(ctx, "mostRecentForEachStation", strings.Join(codes, ","))
}

// FetchRegion returns the most recent METAR for every station in a region,
// e.g. "gb".
func (p *ADDSProvider) FetchRegion(ctx context.Context, region string) ([]*weather.Metar, error) {
	if region == "" {
		return nil, fmt.Errorf("region code is required")
	}
	return p.retrieve(ctx, "mostRecentForEachStation", "~"+region)
}

func (p *ADDSProvider) retrieve(ctx context.Context, recency, stations string) ([]*weather.Metar, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("dataSource", "metars")
		values.Set("requestType", "retrieve")
		values.Set("format", "xml")
		values.Set("hoursBeforeNow", "3")
		values.Set(recency, "true")
		values.Set("stationString", stations)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	body, err := fetchBody(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("adds request for %s: %w", stations, err)
	}

	metars, err := parseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("adds response for %s: %w", stations, err)
	}

	log.Printf("DEBUG: adds: %d METARs for %s", len(metars), stations)
	return metars, nil
}
