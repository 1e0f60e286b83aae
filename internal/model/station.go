package model

import "strconv"

// Station is a reference point of interest, usually a transit station. Group
// is the line it belongs to.
type Station struct {
	Name  string `json:"name" yaml:"name"`
	Group string `json:"group" yaml:"group"`
	Coord `yaml:",inline"`
}

// FormatDegrees formats a coordinate component with the shortest
// fixed-point representation that round-trips.
func FormatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
