// Package geo provides distance and search-window helpers for a single
// metropolitan area.
package geo

// Station access classes.
const (
	ClassWalk    = "walk"
	ClassNear    = "near"
	ClassTransit = "transit"
)

// Distance thresholds for classification (metres).
const (
	walkThresholdM = 1000.0
	nearThresholdM = 2500.0
)

// Classify returns how a school reaches its assigned station.
// Rules:
//   - walk: station within 1 km
//   - near: station within 2.5 km
//   - transit: anything further
func Classify(stationDistanceM float64) string {
	switch {
	case stationDistanceM <= walkThresholdM:
		return ClassWalk
	case stationDistanceM <= nearThresholdM:
		return ClassNear
	default:
		return ClassTransit
	}
}
