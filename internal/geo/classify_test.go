package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ambientctx/internal/model"
	"github.com/sells-group/ambientctx/pkg/geocode"
)

func layers(names ...string) geocode.Geographies {
	g := geocode.Geographies{}
	for _, n := range names {
		g[n] = []geocode.Geography{{BaseName: n + " base"}}
	}
	return g
}

func TestClassifyLayers(t *testing.T) {
	tests := []struct {
		name     string
		geos     geocode.Geographies
		expected model.Classification
		ok       bool
	}{
		{
			name:     "urban wins over everything",
			geos:     layers(geocode.LayerUrbanAreas, geocode.LayerMetropolitan, geocode.LayerCounties, geocode.LayerStates),
			expected: model.ClassUrban,
			ok:       true,
		},
		{
			name:     "csa is suburban",
			geos:     layers(geocode.LayerCombinedStatistical, geocode.LayerStates),
			expected: model.ClassSuburban,
			ok:       true,
		},
		{
			name:     "msa is suburban",
			geos:     layers(geocode.LayerMetropolitan),
			expected: model.ClassSuburban,
			ok:       true,
		},
		{
			name:     "incorporated place is suburban",
			geos:     layers(geocode.LayerIncorporatedPlaces, geocode.LayerCounties),
			expected: model.ClassSuburban,
			ok:       true,
		},
		{
			name:     "census tract is suburban",
			geos:     layers(geocode.LayerCensusTracts),
			expected: model.ClassSuburban,
			ok:       true,
		},
		{
			name:     "counties only is rural",
			geos:     layers(geocode.LayerCounties),
			expected: model.ClassRural,
			ok:       true,
		},
		{
			name:     "states only is rural",
			geos:     layers(geocode.LayerStates),
			expected: model.ClassRural,
			ok:       true,
		},
		{
			name: "unrelated layers are inconclusive",
			geos: layers("2020 Census Blocks", "Unified School Districts"),
			ok:   false,
		},
		{
			name: "empty urban layer does not count",
			geos: geocode.Geographies{geocode.LayerUrbanAreas: {}},
			ok:   false,
		},
		{
			name: "nil",
			geos: nil,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClassifyLayers(tt.geos)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestStateName(t *testing.T) {
	geos := geocode.Geographies{
		geocode.LayerStates: {{BaseName: "California", StateAbbr: "CA"}, {BaseName: "Oregon"}},
	}
	name := StateName(geos)
	require.NotNil(t, name)
	assert.Equal(t, "California", *name)

	assert.Nil(t, StateName(layers(geocode.LayerCounties)))
	assert.Nil(t, StateName(geocode.Geographies{geocode.LayerStates: {{Name: "no basename"}}}))
}
