// Package report writes the rendered map: a GeoJSON layer and the HTML page
// that displays it.
package report

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/school-tracker/internal/geo"
	"github.com/sells-group/school-tracker/internal/model"
)

// Feature kinds.
const (
	KindSchool = "school"
	KindHouse  = "house"
)

// Record is one school ready for display.
type Record struct {
	School *model.School
	Color  string
}

func point(c model.Coord) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{c.Lng, c.Lat}).SetSRID(4326)
}

// FeatureCollection builds the GeoJSON layer. Each school becomes a point
// feature followed by one feature per attached house.
func FeatureCollection(records []Record) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	for _, r := range records {
		s := r.School
		props := map[string]interface{}{
			"kind":    KindSchool,
			"name":    s.Name,
			"label":   s.Label(),
			"rating":  s.Rating,
			"address": s.Address,
			"color":   r.Color,
		}
		if s.Number != nil {
			props["number"] = *s.Number
		}
		if s.Station != nil {
			props["station"] = s.Station.Name
			props["line"] = s.Station.Group
			props["station_distance_m"] = s.StationDistanceM
			props["access"] = geo.Classify(s.StationDistanceM)
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   point(s.Position()),
			Properties: props,
		})

		for _, p := range s.Places {
			fc.Features = append(fc.Features, &geojson.Feature{
				Geometry: point(p.Coord),
				Properties: map[string]interface{}{
					"kind":    KindHouse,
					"school":  s.Label(),
					"address": p.Address,
					"color":   r.Color,
				},
			})
		}
	}
	return fc
}
