package geo

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/ambientctx/internal/model"
	"github.com/sells-group/ambientctx/pkg/geocode"
)

// Classification sources.
const (
	SourceCensus   = "census"
	SourceFallback = "fallback"
)

// CityLocator returns the city associated with the caller's IP.
type CityLocator interface {
	City(ctx context.Context) (string, error)
}

// Result is the outcome of classifying a point.
type Result struct {
	Classification model.Classification
	State          *string
	Source         string
}

// FallbackClassifier guesses urbanicity from whether IP geolocation knows a city.
type FallbackClassifier struct {
	cities CityLocator
}

// NewFallbackClassifier creates a FallbackClassifier backed by cities.
func NewFallbackClassifier(cities CityLocator) *FallbackClassifier {
	return &FallbackClassifier{cities: cities}
}

// Fallback returns urban when a real city name comes back, rural otherwise.
// The coordinates are not consulted. It never fails.
func (f *FallbackClassifier) Fallback(ctx context.Context, lat, lon float64) model.Classification {
	city, err := f.cities.City(ctx)
	if err != nil {
		zap.L().Debug("fallback classifier: city lookup failed", zap.Error(err))
		return model.ClassRural
	}
	if isPlaceholder(city) {
		return model.ClassRural
	}
	return model.ClassUrban
}

func isPlaceholder(city string) bool {
	city = strings.TrimSpace(city)
	return city == "" || strings.EqualFold(city, model.UnknownValue)
}

// Resolver classifies points with the Census geographies API and falls back
// to the IP heuristic when Census is unavailable or inconclusive.
type Resolver struct {
	census   geocode.Client
	fallback *FallbackClassifier
}

// NewResolver creates a Resolver.
func NewResolver(census geocode.Client, fallback *FallbackClassifier) *Resolver {
	return &Resolver{census: census, fallback: fallback}
}

// Classify returns the classification and containing state of (lat, lon).
func (r *Resolver) Classify(ctx context.Context, lat, lon float64) Result {
	geos, err := r.census.Geographies(ctx, lat, lon)
	if err != nil {
		zap.L().Warn("classification: census lookup failed, using fallback", zap.Error(err))
		return Result{
			Classification: r.fallback.Fallback(ctx, lat, lon),
			Source:         SourceFallback,
		}
	}

	state := StateName(geos)
	if class, ok := ClassifyLayers(geos); ok {
		return Result{Classification: class, State: state, Source: SourceCensus}
	}

	zap.L().Debug("classification: no known layers, using fallback",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
	)
	return Result{
		Classification: r.fallback.Fallback(ctx, lat, lon),
		State:          state,
		Source:         SourceFallback,
	}
}
