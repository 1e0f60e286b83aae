package stations

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/school-tracker/internal/model"
)

// Attribute fields read from station shapefiles.
const (
	NameField = "name"
	LineField = "line"
)

// LoadShapefile reads point features from a shapefile. The NAME attribute
// becomes the station name and LINE its group.
func LoadShapefile(path string) ([]model.Station, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "stations: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}
	nameIdx, ok := fieldIdx[NameField]
	if !ok {
		return nil, eris.Errorf("stations: shapefile %s has no %s field", path, strings.ToUpper(NameField))
	}
	lineIdx, hasLine := fieldIdx[LineField]

	var out []model.Station
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}

		name := attribute(reader, nameIdx)
		if name == "" {
			skipped++
			continue
		}
		st := model.Station{Name: name, Coord: model.Coord{Lat: pt.Y, Lng: pt.X}}
		if hasLine {
			st.Group = attribute(reader, lineIdx)
		}
		out = append(out, st)
	}

	if skipped > 0 {
		zap.L().Debug("stations: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return out, nil
}

func attribute(r *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(r.Attribute(idx), "\x00"))
}
