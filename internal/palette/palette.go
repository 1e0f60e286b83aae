// Package palette maps ratings onto a two-colour gradient.
package palette

import (
	"fmt"
	"math"

	"github.com/sells-group/school-tracker/internal/model"
)

// RGB is an 8-bit colour.
type RGB struct {
	R, G, B uint8
}

// Hex formats c as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Gradient endpoints.
var (
	Low  = RGB{R: 0xd7, G: 0x30, B: 0x27}
	High = RGB{R: 0x1a, G: 0x98, B: 0x50}
)

// Range returns the min and max rating across schools. ok is false when
// schools is empty.
func Range(schools []*model.School) (lo, hi float64, ok bool) {
	for i, s := range schools {
		if i == 0 {
			lo, hi = s.Rating, s.Rating
			continue
		}
		lo = math.Min(lo, s.Rating)
		hi = math.Max(hi, s.Rating)
	}
	return lo, hi, len(schools) > 0
}

// Alpha is the position of rating within [lo, hi], clamped to [0, 1]. A
// zero-width range maps every rating to the high end.
func Alpha(rating, lo, hi float64) float64 {
	if hi <= lo {
		return 1
	}
	a := (rating - lo) / (hi - lo)
	return math.Max(0, math.Min(1, a))
}

// ColorFor interpolates between Low and High for rating within [lo, hi].
func ColorFor(rating, lo, hi float64) string {
	a := Alpha(rating, lo, hi)
	return RGB{
		R: lerp(Low.R, High.R, a),
		G: lerp(Low.G, High.G, a),
		B: lerp(Low.B, High.B, a),
	}.Hex()
}

func lerp(from, to uint8, a float64) uint8 {
	return uint8(math.Round(float64(from) + (float64(to)-float64(from))*a))
}
