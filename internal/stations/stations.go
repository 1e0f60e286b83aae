// Package stations loads the reference point set that schools are matched
// against.
package stations

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/school-tracker/internal/model"
)

// dataset mirrors the metro list layout: lines, each with named stations.
// JSON files decode too since YAML is a superset.
type dataset struct {
	Lines []struct {
		Name     string `yaml:"name"`
		Stations []struct {
			Name string  `yaml:"name"`
			Lat  float64 `yaml:"lat"`
			Lng  float64 `yaml:"lng"`
		} `yaml:"stations"`
	} `yaml:"lines"`
}

// Load reads reference points from path. Files ending in .shp are read as
// point shapefiles; anything else as a YAML or JSON line list.
func Load(path string) ([]model.Station, error) {
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		return LoadShapefile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "stations: read %s", path)
	}
	return Decode(data)
}

// Decode parses a YAML or JSON line list.
func Decode(data []byte) ([]model.Station, error) {
	var ds dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, eris.Wrap(err, "stations: parse dataset")
	}

	var out []model.Station
	for _, line := range ds.Lines {
		for _, st := range line.Stations {
			if st.Name == "" {
				zap.L().Warn("stations: skipping unnamed station", zap.String("line", line.Name))
				continue
			}
			out = append(out, model.Station{
				Name:  strings.TrimSpace(st.Name),
				Group: strings.TrimSpace(line.Name),
				Coord: model.Coord{Lat: st.Lat, Lng: st.Lng},
			})
		}
	}

	zap.L().Debug("stations: loaded", zap.Int("lines", len(ds.Lines)), zap.Int("stations", len(out)))
	return out, nil
}
