package main

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/ambientctx/internal/cache"
	"github.com/sells-group/ambientctx/internal/collector"
	"github.com/sells-group/ambientctx/internal/config"
	"github.com/sells-group/ambientctx/internal/device"
	"github.com/sells-group/ambientctx/internal/geo"
	"github.com/sells-group/ambientctx/internal/model"
	"github.com/sells-group/ambientctx/pkg/geocode"
	"github.com/sells-group/ambientctx/pkg/ipgeo"
)

// appEnv holds everything a command needs to run collection passes.
type appEnv struct {
	Collector *collector.Collector
	Cache     cache.Store
	SessionID string
}

// Close releases the session cache.
func (e *appEnv) Close() {
	if e.Cache != nil {
		if err := e.Cache.Close(); err != nil {
			zap.L().Warn("close session cache", zap.Error(err))
		}
	}
}

// sessionID returns the configured session, or a fresh one for this process.
func sessionID(c *config.Config) string {
	if c.Cache.SessionID != "" {
		return c.Cache.SessionID
	}
	return uuid.New().String()
}

// openCache opens the configured session cache.
func openCache(ctx context.Context, c *config.Config) (cache.Store, string, error) {
	session := sessionID(c)
	st, err := cache.Open(ctx, c.Cache.Options(session))
	if err != nil {
		return nil, "", err
	}
	return st, session, nil
}

// initCollector wires the HTTP clients, resolver and cache into a Collector.
func initCollector(ctx context.Context, c *config.Config, opts ...collector.Option) (*appEnv, error) {
	st, session, err := openCache(ctx, c)
	if err != nil {
		return nil, err
	}

	hc := &http.Client{Timeout: time.Duration(c.HTTP.TimeoutSecs) * time.Second}

	ipc := ipgeo.NewClient(
		ipgeo.WithEndpoint(c.IPGeo.Endpoint),
		ipgeo.WithHTTPClient(hc),
		ipgeo.WithRatePerMinute(c.IPGeo.RatePerMinute),
	)
	census := geocode.NewClient(
		geocode.WithEndpoint(c.Census.Endpoint),
		geocode.WithBenchmark(c.Census.Benchmark),
		geocode.WithVintage(c.Census.Vintage),
		geocode.WithHTTPClient(hc),
		geocode.WithRateLimit(c.Census.RatePerSecond),
	)
	resolver := geo.NewResolver(census, geo.NewFallbackClassifier(ipc))

	agent := "ambientctx/" + version
	base := []collector.Option{
		collector.WithDevice(func() model.Device { return device.Snapshot(agent) }),
	}

	zap.L().Debug("collector ready",
		zap.String("session", session),
		zap.String("cache_driver", c.Cache.Driver),
		zap.String("ipgeo_endpoint", c.IPGeo.Endpoint),
		zap.String("census_benchmark", c.Census.Benchmark),
		zap.String("census_vintage", c.Census.Vintage),
	)

	return &appEnv{
		Collector: collector.New(ipc, resolver, st, append(base, opts...)...),
		Cache:     st,
		SessionID: session,
	}, nil
}
