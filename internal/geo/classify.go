// Package geo classifies points as urban, suburban or rural from Census geography layers.
package geo

import (
	"github.com/sells-group/ambientctx/internal/model"
	"github.com/sells-group/ambientctx/pkg/geocode"
)

// Layer precedence. The first tier with any layer present wins.
var (
	urbanLayers    = []string{geocode.LayerUrbanAreas}
	suburbanLayers = []string{
		geocode.LayerCombinedStatistical,
		geocode.LayerMetropolitan,
		geocode.LayerIncorporatedPlaces,
		geocode.LayerCensusTracts,
	}
	ruralLayers = []string{geocode.LayerCounties, geocode.LayerStates}
)

// ClassifyLayers returns the classification implied by the layers present.
// Rules, first match wins:
//   - urban: an Urban Areas record
//   - suburban: a CSA, MSA, Incorporated Place or Census Tract record
//   - rural: a County or State record
//
// ok is false when none of those layers are present.
func ClassifyLayers(geos geocode.Geographies) (model.Classification, bool) {
	switch {
	case hasAny(geos, urbanLayers):
		return model.ClassUrban, true
	case hasAny(geos, suburbanLayers):
		return model.ClassSuburban, true
	case hasAny(geos, ruralLayers):
		return model.ClassRural, true
	default:
		return "", false
	}
}

// StateName returns the base name of the first States record, or nil.
func StateName(geos geocode.Geographies) *string {
	st, ok := geos.First(geocode.LayerStates)
	if !ok || st.BaseName == "" {
		return nil
	}
	name := st.BaseName
	return &name
}

func hasAny(geos geocode.Geographies, layers []string) bool {
	for _, l := range layers {
		if geos.Has(l) {
			return true
		}
	}
	return false
}
