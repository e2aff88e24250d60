// Package geocode looks up the Census geographies that contain a point.
package geocode

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"
)

// Client reverse-geocodes coordinates into Census geography layers.
type Client interface {
	// Geographies returns the layers containing (lat, lon), keyed by layer name.
	Geographies(ctx context.Context, lat, lon float64) (Geographies, error)
}

// Geography is one record of a Census geography layer.
type Geography struct {
	GeoID     string `json:"GEOID"`
	Name      string `json:"NAME"`
	BaseName  string `json:"BASENAME"`
	State     string `json:"STATE,omitempty"`
	StateAbbr string `json:"STUSAB,omitempty"`
}

// Geographies maps a layer name (e.g. "Urban Areas") to its records.
type Geographies map[string][]Geography

// Has reports whether layer is present with at least one record.
func (g Geographies) Has(layer string) bool {
	return len(g[layer]) > 0
}

// First returns the first record of layer.
func (g Geographies) First(layer string) (Geography, bool) {
	recs := g[layer]
	if len(recs) == 0 {
		return Geography{}, false
	}
	return recs[0], true
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithEndpoint overrides the Census geographies/coordinates endpoint.
func WithEndpoint(endpoint string) Option {
	return func(g *geocoder) {
		if endpoint != "" {
			g.endpoint = endpoint
		}
	}
}

// WithBenchmark selects the Census benchmark (dataset release).
func WithBenchmark(benchmark string) Option {
	return func(g *geocoder) {
		if benchmark != "" {
			g.benchmark = benchmark
		}
	}
}

// WithVintage selects the Census vintage within the benchmark.
func WithVintage(vintage string) Option {
	return func(g *geocoder) {
		if vintage != "" {
			g.vintage = vintage
		}
	}
}

// WithHTTPClient sets a custom HTTP client for Census requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second rate limit for Census API calls.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		if rps > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type geocoder struct {
	httpClient *http.Client
	endpoint   string
	benchmark  string
	vintage    string
	limiter    *rate.Limiter
}

// NewClient creates a new Census geographies Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{},
		endpoint:   DefaultEndpoint,
		benchmark:  DefaultBenchmark,
		vintage:    DefaultVintage,
		limiter:    rate.NewLimiter(50, 50), // Census default: 50 req/s
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}
