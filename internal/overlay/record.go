package overlay

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// RequiredProperties lists the string properties every fetched record must carry.
var RequiredProperties = []string{"name", "type", "description", "source"}

// Record is one geospatial entity: a geometry plus its descriptive properties.
// Records are not modified after they are fetched.
type Record struct {
	Geometry   orb.Geometry
	Properties geojson.Properties
}

// Name returns the record's display name.
func (r Record) Name() string { return r.prop("name") }

// Type returns the record's category-specific type, e.g. "basalt".
func (r Record) Type() string { return r.prop("type") }

// Description returns the record's free-text description.
func (r Record) Description() string { return r.prop("description") }

// Source returns the record's data attribution.
func (r Record) Source() string { return r.prop("source") }

// prop returns a string property, or "" when it is missing or not a string.
func (r Record) prop(key string) string {
	if s, ok := r.Properties[key].(string); ok {
		return s
	}
	return ""
}

// DecodeRecords parses a GeoJSON FeatureCollection into records.
// Every feature needs a geometry and all of RequiredProperties as strings.
func DecodeRecords(data []byte) ([]Record, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing geojson: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("parsing geojson: expected FeatureCollection, got %q", fc.Type)
	}

	records := make([]Record, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry == nil {
			return nil, fmt.Errorf("feature %d: missing geometry", i)
		}
		if emptyPolygon(f.Geometry) {
			return nil, fmt.Errorf("feature %d: polygon has no outer ring", i)
		}
		for _, key := range RequiredProperties {
			if _, ok := f.Properties[key].(string); !ok {
				return nil, fmt.Errorf("feature %d: missing string property %q", i, key)
			}
		}
		records = append(records, Record{Geometry: f.Geometry, Properties: f.Properties})
	}
	return records, nil
}

// emptyPolygon reports whether g is a polygon, or a multipolygon member,
// without a usable outer ring.
func emptyPolygon(g orb.Geometry) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return len(g) == 0 || len(g[0]) == 0
	case orb.MultiPolygon:
		if len(g) == 0 {
			return true
		}
		for _, p := range g {
			if len(p) == 0 || len(p[0]) == 0 {
				return true
			}
		}
	}
	return false
}
