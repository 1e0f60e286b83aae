package model

import (
	"fmt"
	"strings"
)

// Locatable is implemented by anything with a latitude/longitude position.
type Locatable interface {
	Position() Coord
}

// Coord is a point in decimal degrees, latitude first.
type Coord struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Position implements Locatable.
func (c Coord) Position() Coord { return c }

// String renders the coordinate the way the cache file stores it.
func (c Coord) String() string {
	return fmt.Sprintf("(%s, %s)", FormatDegrees(c.Lat), FormatDegrees(c.Lng))
}

// Place is a resolved secondary location (a house or building) attached to a school.
type Place struct {
	Address string `json:"address"`
	Coord   `yaml:",inline"`
}

// School is one entry of a rank list. Address and Location are filled in by
// the resolver; Station and Places by assignment and enrichment.
type School struct {
	Name     string   `json:"name"`
	Number   *int     `json:"number,omitempty"`
	City     string   `json:"city"`
	Rating   float64  `json:"rating"`
	Address  string   `json:"address,omitempty"`
	Location *Coord   `json:"location,omitempty"`
	Station  *Station `json:"station,omitempty"`
	// StationDistanceM is the geodesic distance to Station, for display only.
	StationDistanceM float64 `json:"station_distance_m,omitempty"`
	Places           []Place `json:"places,omitempty"`
}

// Resolved reports whether the school has an address and coordinate.
func (s *School) Resolved() bool {
	return s.Location != nil && s.Address != ""
}

// Position implements Locatable. It must only be called on resolved schools.
func (s *School) Position() Coord {
	if s.Location == nil {
		return Coord{}
	}
	return *s.Location
}

// Query is the free-text lookup used to resolve the school.
func (s *School) Query() string {
	return s.Name + " " + s.City
}

// Label is the short display name used in the report.
func (s *School) Label() string {
	if s.Number != nil {
		return fmt.Sprintf("№%d", *s.Number)
	}
	return s.Name
}

func (s *School) String() string {
	var b strings.Builder
	num := "?"
	if s.Number != nil {
		num = fmt.Sprintf("%d", *s.Number)
	}
	fmt.Fprintf(&b, "#%s: %q (@%s, rating %g", num, s.Name, s.City, s.Rating)
	if s.Location != nil {
		fmt.Fprintf(&b, ", xy: %g %g", s.Location.Lat, s.Location.Lng)
	}
	if s.Address != "" {
		fmt.Fprintf(&b, ", %q", s.Address)
	}
	b.WriteString(")")
	return b.String()
}
