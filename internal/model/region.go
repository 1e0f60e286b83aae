package model

import "strings"

// Region biases address lookups towards one city.
// Span holds half-widths in degrees on each axis.
type Region struct {
	City   string
	Center Coord
	Span   Coord
}

// Contains reports whether a parsed city field belongs to the region.
func (r Region) Contains(city string) bool {
	return strings.Contains(city, r.City)
}

// Regions is the built-in region table keyed by city name.
var Regions = map[string]Region{
	"Москва": {
		City:   "Москва",
		Center: Coord{Lat: 55.756994, Lng: 37.618920},
		Span:   Coord{Lat: 0.400552, Lng: 0.552069},
	},
}

// LookupRegion returns the region for a configured city name.
func LookupRegion(city string) (Region, bool) {
	r, ok := Regions[city]
	return r, ok
}
