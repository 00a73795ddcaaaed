package geodata

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// loadGeoJSON reads a FeatureCollection of named Polygon/MultiPolygon
// features. Features without a usable name or geometry are skipped.
func loadGeoJSON(path, nameProp string) (*BoundarySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geodata: read boundary file %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "geodata: parse geojson %s", path)
	}
	if len(fc.Features) == 0 {
		return nil, eris.Errorf("geodata: %s contains no features", path)
	}

	log := zap.L().With(zap.String("component", "geodata.loader"))

	var boundaries []*Boundary
	var skipped int
	for _, f := range fc.Features {
		name := featureName(f, nameProp)
		if name == "" {
			skipped++
			continue
		}
		switch f.Geometry.(type) {
		case *geom.Polygon, *geom.MultiPolygon:
		default:
			skipped++
			continue
		}
		boundaries = append(boundaries, &Boundary{
			Name:       name,
			Normalized: NormalizeName(name),
			Geometry:   f.Geometry,
		})
	}

	if len(boundaries) == 0 {
		return nil, eris.Errorf("geodata: %s contains no usable polygon features", path)
	}
	if skipped > 0 {
		log.Warn("skipped boundary features", zap.Int("skipped", skipped), zap.String("path", path))
	}

	log.Info("boundaries loaded", zap.Int("municipalities", len(boundaries)), zap.String("path", path))
	return newBoundarySet(boundaries), nil
}

func featureName(f *geojson.Feature, nameProp string) string {
	v, ok := f.Properties[nameProp]
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return ""
	}
}
