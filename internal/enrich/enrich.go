// Package enrich attaches secondary locations (houses served by a school)
// listed in a side workbook.
package enrich

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/school-tracker/internal/fetcher"
	"github.com/sells-group/school-tracker/internal/geo"
	"github.com/sells-group/school-tracker/internal/model"
	"github.com/sells-group/school-tracker/pkg/geocode"
)

var (
	sheetRe   = regexp.MustCompile(`^([0-9]+)-`)
	addressRe = regexp.MustCompile(`^([^/]+?)\s*/\s*(.+)$`)
)

// Address is one listed house, "<area> / <street>".
type Address struct {
	Area   string
	Street string
}

// Listings maps school numbers to their listed addresses.
type Listings map[int][]Address

// LoadWorkbook reads listings from an XLSX workbook.
func LoadWorkbook(path string) (Listings, error) {
	sheets, err := fetcher.ReadWorkbook(path)
	if err != nil {
		return nil, err
	}
	return ParseSheets(sheets), nil
}

// ParseSheets builds listings from worksheets named "<number>-...". The first
// cell of each row is the address. Sheets and rows that do not fit are
// logged and skipped.
func ParseSheets(sheets []fetcher.Sheet) Listings {
	out := make(Listings)
	for _, sh := range sheets {
		m := sheetRe.FindStringSubmatch(sh.Name)
		if m == nil {
			zap.L().Warn("enrich: sheet name has no school number", zap.String("sheet", sh.Name))
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		for i, row := range sh.Rows {
			if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
				continue
			}
			addr, ok := ParseAddress(row[0])
			if !ok {
				zap.L().Warn("enrich: unexpected address format",
					zap.String("sheet", sh.Name),
					zap.Int("row", i+1),
					zap.String("text", row[0]),
				)
				continue
			}
			out[num] = append(out[num], addr)
		}
	}
	return out
}

// ParseAddress splits "<area> / <street>".
func ParseAddress(s string) (Address, bool) {
	m := addressRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Address{}, false
	}
	area, street := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	if area == "" || street == "" {
		return Address{}, false
	}
	return Address{Area: area, Street: street}, true
}

// Resolver resolves a single query.
type Resolver interface {
	Resolve(ctx context.Context, q geocode.Query) (*geocode.Result, error)
}

// Enricher resolves listed houses near their school.
type Enricher struct {
	resolver Resolver
	city     string
	radiusKM float64
}

// NewEnricher creates an Enricher. Lookups are restricted to radiusKM around
// the school and prefixed with city.
func NewEnricher(r Resolver, city string, radiusKM float64) *Enricher {
	return &Enricher{resolver: r, city: city, radiusKM: radiusKM}
}

// Enrich resolves addrs and appends the matches to s.Places. Unresolved
// addresses are skipped. s must already be resolved.
func (e *Enricher) Enrich(ctx context.Context, s *model.School, addrs []Address) error {
	center := s.Position()
	span := geo.Span(center, e.radiusKM)

	for _, a := range addrs {
		res, err := e.resolver.Resolve(ctx, geocode.Query{
			Text:   e.city + ", " + a.Street,
			Kind:   geocode.KindPlace,
			Center: center,
			Span:   span,
		})
		if err != nil {
			return err
		}
		if !res.Matched {
			zap.L().Warn("enrich: house not resolved",
				zap.String("school", s.Name),
				zap.String("street", a.Street),
			)
			continue
		}
		s.Places = append(s.Places, model.Place{Address: res.Address, Coord: res.Coord})
	}
	return nil
}
