package tzbed

import (
	"math"

	"github.com/paulmach/orb"
)

// ringEpsilon stands in for the latitude delta of an edge that is (nearly)
// horizontal so the crossing interpolation never divides by zero.
const ringEpsilon = 1e-12

// ringContains reports whether pt lies inside the ring using even-odd ray
// casting. Points are orb.Point{lon, lat}. Only the outer ring is ever
// passed in, so a point inside a hole still counts as inside.
func ringContains(ring orb.Ring, pt orb.Point) bool {
	if len(ring) < minRingPoints {
		return false
	}
	lon, lat := pt[0], pt[1]
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a[1] > lat) == (b[1] > lat) {
			continue
		}
		dLat := b[1] - a[1]
		if math.Abs(dLat) < ringEpsilon {
			dLat = math.Copysign(ringEpsilon, dLat)
		}
		crossLon := (b[0]-a[0])*(lat-a[1])/dLat + a[0]
		if lon < crossLon {
			inside = !inside
		}
	}
	return inside
}
