package report

import (
	_ "embed"
	"html/template"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/school-tracker/internal/model"
)

// Output file names inside the report directory.
const (
	GeoJSONFile = "schools.geojson"
	IndexFile   = "index.html"
)

//go:embed index.html.tmpl
var indexSource string

var indexTmpl = template.Must(template.New(IndexFile).Parse(indexSource))

// Options controls page rendering.
type Options struct {
	Title     string
	MapAPIKey string
	Center    model.Coord
	// RunID tags the output; a random one is generated when empty.
	RunID string
}

type pageData struct {
	Title     string
	MapAPIKey string
	Center    model.Coord
	RunID     string
	Count     int
	Layer     template.JS
}

// Paths are the files written by Write.
type Paths struct {
	GeoJSON string
	Index   string
}

// Write renders records into dir, creating it if needed.
func Write(dir string, records []Record, opts Options) (*Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create %s", dir)
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Title == "" {
		opts.Title = "Schools"
	}

	layer, err := FeatureCollection(records).MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "report: encode geojson")
	}

	paths := &Paths{
		GeoJSON: filepath.Join(dir, GeoJSONFile),
		Index:   filepath.Join(dir, IndexFile),
	}
	if err := os.WriteFile(paths.GeoJSON, layer, 0o644); err != nil {
		return nil, eris.Wrapf(err, "report: write %s", paths.GeoJSON)
	}

	f, err := os.Create(paths.Index)
	if err != nil {
		return nil, eris.Wrapf(err, "report: create %s", paths.Index)
	}
	defer f.Close() //nolint:errcheck

	err = indexTmpl.Execute(f, pageData{
		Title:     opts.Title,
		MapAPIKey: opts.MapAPIKey,
		Center:    opts.Center,
		RunID:     opts.RunID,
		Count:     len(records),
		Layer:     template.JS(layer), //nolint:gosec // produced by the geojson encoder
	})
	if err != nil {
		return nil, eris.Wrap(err, "report: render index")
	}
	if err := f.Close(); err != nil {
		return nil, eris.Wrapf(err, "report: close %s", paths.Index)
	}

	zap.L().Info("report written",
		zap.String("dir", dir),
		zap.String("run_id", opts.RunID),
		zap.Int("schools", len(records)),
	)
	return paths, nil
}
