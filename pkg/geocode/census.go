package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	DefaultEndpoint  = "https://geocoding.geo.census.gov/geocoder/geographies/coordinates"
	DefaultBenchmark = "Public_AR_Current"
	DefaultVintage   = "Current_Current"
)

// Layer names as returned by the Census geographies API.
const (
	LayerUrbanAreas          = "Urban Areas"
	LayerCombinedStatistical = "Combined Statistical Areas"
	LayerMetropolitan        = "Metropolitan Statistical Areas"
	LayerIncorporatedPlaces  = "Incorporated Places"
	LayerCensusTracts        = "Census Tracts"
	LayerCounties            = "Counties"
	LayerStates              = "States"
)

// censusGeographiesResponse is the JSON response from the coordinates endpoint.
type censusGeographiesResponse struct {
	Result *struct {
		Geographies Geographies `json:"geographies"`
	} `json:"result"`
	Errors []string `json:"errors"`
}

// Geographies queries the Census coordinates endpoint for (lat, lon).
func (g *geocoder) Geographies(ctx context.Context, lat, lon float64) (Geographies, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: census rate limit")
	}

	params := url.Values{
		"x":         {strconv.FormatFloat(lon, 'f', -1, 64)},
		"y":         {strconv.FormatFloat(lat, 'f', -1, 64)},
		"benchmark": {g.benchmark},
		"vintage":   {g.vintage},
		"format":    {"json"},
	}

	reqURL := g.endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census build request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: census returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census read body")
	}

	var censusResp censusGeographiesResponse
	if err := json.Unmarshal(body, &censusResp); err != nil {
		return nil, eris.Wrap(err, "geocode: census parse response")
	}
	if len(censusResp.Errors) > 0 {
		return nil, eris.Errorf("geocode: census error: %s", strings.Join(censusResp.Errors, "; "))
	}
	if censusResp.Result == nil {
		return nil, eris.New("geocode: census response missing result")
	}

	geos := censusResp.Result.Geographies
	if geos == nil {
		geos = Geographies{}
	}
	zap.L().Debug("census geographies",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
		zap.Strings("layers", layerNames(geos)),
	)
	return geos, nil
}

// layerNames lists the non-empty layers, for logging.
func layerNames(g Geographies) []string {
	names := make([]string, 0, len(g))
	for name, recs := range g {
		if len(recs) > 0 {
			names = append(names, name)
		}
	}
	return names
}
