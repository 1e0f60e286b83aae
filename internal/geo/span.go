package geo

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/sells-group/school-tracker/internal/model"
)

// DegreesPerKM is the approximate latitude degrees per kilometre.
const DegreesPerKM = 1.0 / 111.0

// earthRadiusM is the mean Earth radius.
const earthRadiusM = 6371008.8

// LngDegreesPerKM returns longitude degrees per kilometre at the given
// latitude. Meridians converge towards the poles, so a kilometre spans more
// longitude degrees the further the latitude is from the equator.
func LngDegreesPerKM(lat float64) float64 {
	return DegreesPerKM / math.Cos(lat*math.Pi/180)
}

// Span converts a radius in kilometres around center into half-widths in
// degrees on each axis.
func Span(center model.Coord, radiusKM float64) model.Coord {
	return model.Coord{
		Lat: radiusKM * DegreesPerKM,
		Lng: radiusKM * LngDegreesPerKM(center.Lat),
	}
}

// DistanceM returns the great-circle distance between a and b in metres.
func DistanceM(a, b model.Coord) float64 {
	angle := s2.LatLngFromDegrees(a.Lat, a.Lng).Distance(s2.LatLngFromDegrees(b.Lat, b.Lng))
	return angle.Radians() * earthRadiusM
}
