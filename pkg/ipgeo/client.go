// Package ipgeo locates the caller's public IP via an ip-api compatible endpoint.
package ipgeo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	// DefaultEndpoint is the ip-api JSON endpoint. The free tier is HTTP only.
	DefaultEndpoint = "http://ip-api.com/json/"

	// DefaultRatePerMinute matches the ip-api free tier allowance.
	DefaultRatePerMinute = 45

	statusSuccess = "success"
	locateFields  = "status,message,lat,lon,region,regionName,country,city,timezone,query"
	cityFields    = "city"
)

var (
	// ErrStatus is returned when the provider answers with a non-success status.
	ErrStatus = eris.New("ipgeo: non-success status")
	// ErrNoCoordinates is returned when latitude or longitude is absent or zero.
	ErrNoCoordinates = eris.New("ipgeo: missing coordinates")
)

// Result is a successful IP geolocation.
type Result struct {
	Latitude   float64
	Longitude  float64
	City       string
	Region     string
	RegionName string
	Country    string
	Timezone   string
	IP         string
	Status     string
}

// response is the JSON body returned by ip-api.
type response struct {
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	Region     string   `json:"region"`
	RegionName string   `json:"regionName"`
	Country    string   `json:"country"`
	City       string   `json:"city"`
	Timezone   string   `json:"timezone"`
	Query      string   `json:"query"`
}

// Option configures the Client.
type Option func(*Client)

// WithEndpoint overrides the geolocation endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRatePerMinute sets the client-side request budget.
func WithRatePerMinute(n float64) Option {
	return func(c *Client) {
		if n > 0 {
			burst := max(int(n), 1)
			c.limiter = rate.NewLimiter(rate.Limit(n/60), burst)
		}
	}
}

// Client queries an ip-api compatible geolocation service. It never retries.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(float64(DefaultRatePerMinute)/60), DefaultRatePerMinute),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Locate resolves the caller's public IP to coordinates and coarse place names.
func (c *Client) Locate(ctx context.Context) (*Result, error) {
	var resp response
	if err := c.get(ctx, locateFields, &resp); err != nil {
		return nil, err
	}

	if resp.Status != statusSuccess {
		return nil, eris.Wrapf(ErrStatus, "ipgeo: locate status %q message %q", resp.Status, resp.Message)
	}
	if resp.Lat == nil || resp.Lon == nil || *resp.Lat == 0 || *resp.Lon == 0 {
		return nil, eris.Wrap(ErrNoCoordinates, "ipgeo: locate")
	}

	return &Result{
		Latitude:   *resp.Lat,
		Longitude:  *resp.Lon,
		City:       resp.City,
		Region:     resp.Region,
		RegionName: resp.RegionName,
		Country:    resp.Country,
		Timezone:   resp.Timezone,
		IP:         resp.Query,
		Status:     resp.Status,
	}, nil
}

// City returns only the city the provider associates with the caller's IP.
// An empty string is a valid answer.
func (c *Client) City(ctx context.Context) (string, error) {
	var resp response
	if err := c.get(ctx, cityFields, &resp); err != nil {
		return "", err
	}
	return resp.City, nil
}

// get issues one GET for the requested field set and decodes the body into out.
func (c *Client) get(ctx context.Context, fields string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "ipgeo: rate limit")
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return eris.Wrap(err, "ipgeo: parse endpoint")
	}
	q := u.Query()
	q.Set("fields", fields)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return eris.Wrap(err, "ipgeo: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "ipgeo: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("ipgeo: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "ipgeo: read body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "ipgeo: parse response")
	}
	return nil
}
