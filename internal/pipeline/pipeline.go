// Package pipeline runs one report: parse the rank list, resolve schools,
// assign stations, attach houses and colour the result.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/school-tracker/internal/config"
	"github.com/sells-group/school-tracker/internal/enrich"
	"github.com/sells-group/school-tracker/internal/geo"
	"github.com/sells-group/school-tracker/internal/model"
	"github.com/sells-group/school-tracker/internal/palette"
	"github.com/sells-group/school-tracker/internal/rating"
	"github.com/sells-group/school-tracker/internal/report"
	"github.com/sells-group/school-tracker/internal/spatial"
	"github.com/sells-group/school-tracker/internal/stations"
	"github.com/sells-group/school-tracker/pkg/geocode"
)

// Resolver resolves free-text queries to an address and coordinate.
type Resolver interface {
	Resolve(ctx context.Context, q geocode.Query) (*geocode.Result, error)
}

// Input names the rank list to process.
type Input struct {
	Path     string
	Encoding string
}

// Phase records how long one step took.
type Phase struct {
	Name     string
	Duration time.Duration
}

// Result is the outcome of one run.
type Result struct {
	RunID      string
	Parsed     int
	Skipped    int
	Filtered   int
	Unresolved int
	Houses     int
	// Schools is the active set: resolved schools in input order.
	Schools []*model.School
	Records []report.Record
	Phases  []Phase
}

// Pipeline holds the collaborators for a run.
type Pipeline struct {
	cfg      *config.Config
	region   model.Region
	resolver Resolver
}

// New creates a Pipeline. cfg must have passed Validate.
func New(cfg *config.Config, resolver Resolver) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		region:   cfg.RegionDescriptor(),
		resolver: resolver,
	}
}

type inputs struct {
	parsed   *rating.Result
	stations []model.Station
	listings enrich.Listings
}

// Run executes every step in order. Per-line and per-record problems are
// logged and skipped; the returned error is fatal.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	log := zap.L().With(zap.String("run_id", res.RunID))
	log.Info("pipeline: starting", zap.String("input", in.Path), zap.String("city", p.region.City))

	track := func(name string, fn func() error) error {
		start := time.Now()
		err := fn()
		d := time.Since(start)
		res.Phases = append(res.Phases, Phase{Name: name, Duration: d})
		if err != nil {
			log.Error("pipeline: phase failed", zap.String("phase", name), zap.Error(err))
			return err
		}
		log.Info("pipeline: phase complete", zap.String("phase", name), zap.Int64("duration_ms", d.Milliseconds()))
		return nil
	}

	var data inputs
	if err := track("load", func() error { return p.load(ctx, in, &data) }); err != nil {
		return nil, err
	}
	res.Parsed = len(data.parsed.Schools)
	res.Skipped = len(data.parsed.Warnings)

	var active []*model.School
	_ = track("filter", func() error {
		active = p.filter(data.parsed.Schools)
		res.Filtered = res.Parsed - len(active)
		return nil
	})

	if err := track("resolve", func() error {
		var err error
		active, err = p.resolve(ctx, active)
		return err
	}); err != nil {
		return nil, err
	}
	res.Unresolved = res.Parsed - res.Filtered - len(active)

	if err := track("assign", func() error { return assign(active, data.stations) }); err != nil {
		return nil, err
	}

	if len(data.listings) > 0 {
		if err := track("enrich", func() error {
			n, err := p.enrich(ctx, data.parsed.ByNumber, data.listings)
			res.Houses = n
			return err
		}); err != nil {
			return nil, err
		}
	}

	_ = track("colour", func() error {
		res.Records = colour(active)
		return nil
	})
	res.Schools = active

	log.Info("pipeline: complete",
		zap.Int("parsed", res.Parsed),
		zap.Int("skipped_lines", res.Skipped),
		zap.Int("filtered", res.Filtered),
		zap.Int("unresolved", res.Unresolved),
		zap.Int("schools", len(active)),
		zap.Int("houses", res.Houses),
	)
	return res, nil
}

// load reads the rank list, the stations and the optional workbook in parallel.
func (p *Pipeline) load(ctx context.Context, in Input, out *inputs) error {
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		r, err := rating.ParseFile(in.Path, in.Encoding, p.region.City)
		out.parsed = r
		return err
	})
	g.Go(func() error {
		st, err := stations.Load(p.cfg.Stations.Path)
		out.stations = st
		return err
	})
	if p.cfg.Enrich.Workbook != "" {
		g.Go(func() error {
			l, err := enrich.LoadWorkbook(p.cfg.Enrich.Workbook)
			out.listings = l
			return err
		})
	}

	return g.Wait()
}

func (p *Pipeline) filter(schools []*model.School) []*model.School {
	var out []*model.School
	for _, s := range schools {
		if !p.region.Contains(s.City) {
			zap.L().Debug("pipeline: outside region", zap.String("school", s.Name), zap.String("city", s.City))
			continue
		}
		out = append(out, s)
	}
	return out
}

// resolve looks up every school sequentially and returns the resolved ones.
func (p *Pipeline) resolve(ctx context.Context, schools []*model.School) ([]*model.School, error) {
	var out []*model.School
	for _, s := range schools {
		r, err := p.resolver.Resolve(ctx, geocode.Query{
			Text:   s.Query(),
			Kind:   geocode.KindOrganization,
			Center: p.region.Center,
			Span:   p.region.Span,
		})
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: resolve")
		}
		if r.Matched {
			loc := r.Coord
			s.Address = r.Address
			s.Location = &loc
		}
		if !s.Resolved() {
			zap.L().Warn("pipeline: school not resolved", zap.String("school", s.Name))
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// assign attaches the nearest station to every school. An empty station
// set with schools to assign is fatal.
func assign(schools []*model.School, points []model.Station) error {
	if len(schools) == 0 {
		return nil
	}
	tree := spatial.Build(points)
	for _, s := range schools {
		st, _, err := tree.Nearest(s.Position())
		if err != nil {
			return eris.Wrapf(err, "pipeline: assign %q", s.Name)
		}
		s.Station = &st
		s.StationDistanceM = geo.DistanceM(s.Position(), st.Coord)
	}
	return nil
}

func (p *Pipeline) enrich(ctx context.Context, byNumber map[int]*model.School, listings enrich.Listings) (int, error) {
	e := enrich.NewEnricher(p.resolver, p.region.City, p.cfg.Enrich.RadiusKM)

	nums := make([]int, 0, len(listings))
	for n := range listings {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	houses := 0
	for _, n := range nums {
		s, ok := byNumber[n]
		if !ok || !s.Resolved() {
			zap.L().Warn("pipeline: listing for unknown or unresolved school", zap.Int("number", n))
			continue
		}
		before := len(s.Places)
		if err := e.Enrich(ctx, s, listings[n]); err != nil {
			return houses, eris.Wrapf(err, "pipeline: enrich %d", n)
		}
		houses += len(s.Places) - before
	}
	return houses, nil
}

func colour(schools []*model.School) []report.Record {
	lo, hi, ok := palette.Range(schools)
	if !ok {
		return nil
	}
	out := make([]report.Record, 0, len(schools))
	for _, s := range schools {
		out = append(out, report.Record{School: s, Color: palette.ColorFor(s.Rating, lo, hi)})
	}
	return out
}
