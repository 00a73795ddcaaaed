package geodata

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Boundary is one municipality polygon keyed by its normalized name.
type Boundary struct {
	Name       string
	Normalized string
	Geometry   geom.T // *geom.Polygon or *geom.MultiPolygon, SRID 4326
}

// BoundarySet holds the municipality boundaries of one state, loaded once
// at startup and read-only afterwards.
type BoundarySet struct {
	byName  map[string]*Boundary
	ordered []*Boundary
}

// Get looks up a boundary by normalized municipality name.
func (s *BoundarySet) Get(normalized string) (*Boundary, bool) {
	b, ok := s.byName[normalized]
	return b, ok
}

// All returns the boundaries in file order.
func (s *BoundarySet) All() []*Boundary {
	return s.ordered
}

// Len returns the number of boundaries.
func (s *BoundarySet) Len() int {
	return len(s.ordered)
}

// Names returns the original municipality names, sorted.
func (s *BoundarySet) Names() []string {
	names := make([]string, 0, len(s.ordered))
	for _, b := range s.ordered {
		names = append(names, b.Name)
	}
	sort.Strings(names)
	return names
}

func newBoundarySet(boundaries []*Boundary) *BoundarySet {
	set := &BoundarySet{
		byName:  make(map[string]*Boundary, len(boundaries)),
		ordered: boundaries,
	}
	for _, b := range boundaries {
		if prev, dup := set.byName[b.Normalized]; dup {
			zap.L().Warn("duplicate municipality boundary, keeping first",
				zap.String("name", b.Name),
				zap.String("kept", prev.Name),
			)
			continue
		}
		set.byName[b.Normalized] = b
	}
	return set
}

// Load reads a boundary file, dispatching on extension: .shp is read as an
// ESRI shapefile, anything else as a GeoJSON FeatureCollection. nameProp is
// the feature property (or dbf field) holding the municipality name.
func Load(path, nameProp string) (*BoundarySet, error) {
	if nameProp == "" {
		return nil, eris.New("geodata: boundary name property not configured")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return loadShapefile(path, nameProp)
	default:
		return loadGeoJSON(path, nameProp)
	}
}
