package geodata

import (
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Choropleth is the render model of the municipality heat map: one feature
// per boundary with its establishment count, plus the data-side names that
// matched no boundary. Boundaries without data are zero-filled so the whole
// state renders.
type Choropleth struct {
	FeatureCollection *geojson.FeatureCollection `json:"map"`
	Unmatched         []string                   `json:"unmatched,omitempty"`
}

// BuildChoropleth joins per-municipality counts (keyed by normalized name,
// with the original display name as value key) onto the boundary set.
func BuildChoropleth(set *BoundarySet, counts map[string]int, displayNames map[string]string) (*Choropleth, error) {
	if set == nil || set.Len() == 0 {
		return nil, eris.New("geodata: no boundaries loaded")
	}

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, set.Len())}
	for _, b := range set.All() {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: b.Geometry,
			Properties: map[string]any{
				"name":  b.Name,
				"count": counts[b.Normalized],
			},
		})
	}

	var unmatched []string
	for key := range counts {
		if _, ok := set.Get(key); ok {
			continue
		}
		name := displayNames[key]
		if name == "" {
			name = key
		}
		unmatched = append(unmatched, name)
	}
	sort.Strings(unmatched)

	return &Choropleth{FeatureCollection: fc, Unmatched: unmatched}, nil
}
