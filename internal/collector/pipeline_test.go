package collector

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ambientctx/internal/cache"
	"github.com/sells-group/ambientctx/internal/geo"
	"github.com/sells-group/ambientctx/internal/model"
	"github.com/sells-group/ambientctx/pkg/geocode"
	"github.com/sells-group/ambientctx/pkg/ipgeo"
)

// ipAPI serves ip-api style responses, switching on the requested field set.
type ipAPI struct {
	locateBody string
	cityBody   string
	cityStatus int
	locates    atomic.Int32
	cities     atomic.Int32
}

func (a *ipAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("fields") == "city" {
		a.cities.Add(1)
		if a.cityStatus != 0 {
			w.WriteHeader(a.cityStatus)
			return
		}
		_, _ = io.WriteString(w, a.cityBody)
		return
	}
	a.locates.Add(1)
	_, _ = io.WriteString(w, a.locateBody)
}

const njLocate = `{"status":"success","lat":40.0,"lon":-74.0,"region":"NJ","regionName":"New Jersey",
	"country":"United States","city":"Trenton","timezone":"America/New_York","query":"203.0.113.7"}`

func newPipeline(t *testing.T, api *ipAPI, censusURL string, st cache.Store) *Collector {
	t.Helper()
	ipSrv := httptest.NewServer(api)
	t.Cleanup(ipSrv.Close)

	ipc := ipgeo.NewClient(ipgeo.WithEndpoint(ipSrv.URL+"/json/"), ipgeo.WithRatePerMinute(60000))
	census := geocode.NewClient(geocode.WithEndpoint(censusURL), geocode.WithRateLimit(1000))
	resolver := geo.NewResolver(census, geo.NewFallbackClassifier(ipc))

	return New(ipc, resolver, st, WithDevice(testDevice))
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()
	return u
}

func TestPipeline_CensusUrban(t *testing.T) {
	censusSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "-74", r.URL.Query().Get("x"))
		assert.Equal(t, "40", r.URL.Query().Get("y"))
		_, _ = io.WriteString(w, `{"result":{"geographies":{
			"Urban Areas":[{"BASENAME":"Trenton, NJ"}],
			"Census Tracts":[{"BASENAME":"21"}],
			"States":[{"BASENAME":"New Jersey","STUSAB":"NJ"}]}}}`)
	}))
	defer censusSrv.Close()

	api := &ipAPI{locateBody: njLocate}
	c := newPipeline(t, api, censusSrv.URL, cache.NewMemory())

	uc := c.Collect(context.Background())
	require.NotNil(t, uc.Classification)
	assert.Equal(t, model.ClassUrban, *uc.Classification)
	require.NotNil(t, uc.Location)
	assert.Equal(t, "New Jersey", uc.Location.State)
	assert.Zero(t, api.cities.Load())
}

func TestPipeline_CensusRuralWithState(t *testing.T) {
	censusSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"result":{"geographies":{
			"Counties":[{"BASENAME":"Inyo"}],
			"States":[{"BASENAME":"California","STUSAB":"CA"}]}}}`)
	}))
	defer censusSrv.Close()

	c := newPipeline(t, &ipAPI{locateBody: njLocate}, censusSrv.URL, cache.NewMemory())

	uc := c.Collect(context.Background())
	assert.Equal(t, model.ClassRural, *uc.Classification)
	assert.Equal(t, "California", uc.Location.State)
}

func TestPipeline_CensusDownFallbackCity(t *testing.T) {
	api := &ipAPI{locateBody: njLocate, cityBody: `{"city":"Springfield"}`}
	c := newPipeline(t, api, deadURL(t), cache.NewMemory())

	uc := c.Collect(context.Background())
	assert.Equal(t, model.ClassUrban, *uc.Classification)
	assert.Equal(t, "Unknown", uc.Location.State, "fallback does not recover a state")
	assert.Equal(t, int32(1), api.cities.Load())
}

func TestPipeline_CensusDownFallbackDown(t *testing.T) {
	api := &ipAPI{locateBody: njLocate, cityStatus: http.StatusServiceUnavailable}
	c := newPipeline(t, api, deadURL(t), cache.NewMemory())

	uc := c.Collect(context.Background())
	assert.Equal(t, model.ClassRural, *uc.Classification)
	assert.Equal(t, model.OutcomeComplete, uc.Outcome.Status)
}

func TestPipeline_GeolocationFailStatus(t *testing.T) {
	api := &ipAPI{locateBody: `{"status":"fail","message":"private range"}`}
	c := newPipeline(t, api, deadURL(t), cache.NewMemory())

	uc := c.Collect(context.Background())
	assert.Nil(t, uc.Location)
	assert.Nil(t, uc.Classification)
	assert.Equal(t, model.OutcomeLocationUnavailable, uc.Outcome.Status)
}

func TestPipeline_SecondPassIsOffline(t *testing.T) {
	var censusCalls atomic.Int32
	censusSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		censusCalls.Add(1)
		_, _ = io.WriteString(w, `{"result":{"geographies":{"Incorporated Places":[{"BASENAME":"Hamilton"}]}}}`)
	}))
	defer censusSrv.Close()

	api := &ipAPI{locateBody: njLocate}
	c := newPipeline(t, api, censusSrv.URL, cache.NewMemory())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first := c.Collect(ctx)
	second := c.Collect(ctx)

	assert.Equal(t, model.ClassSuburban, *first.Classification)
	assert.Equal(t, *first.Location, *second.Location)
	assert.Equal(t, *first.Classification, *second.Classification)
	assert.True(t, second.FromCache)
	assert.Equal(t, int32(1), api.locates.Load())
	assert.Equal(t, int32(1), censusCalls.Load())
}
