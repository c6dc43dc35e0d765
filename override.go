package tzbed

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// earthRadiusKm is the mean Earth radius used for override distances.
const earthRadiusKm = 6371.0088

// overrideFallbackRadiusKm is the shared radius within which the nearest
// island still wins when only a generic ocean polygon (or nothing) matched.
const overrideFallbackRadiusKm = 300.0

// overrideEntry is a small island near the anti-meridian whose boundary
// geometry is often missing or degenerate in the catalogue.
type overrideEntry struct {
	zone     string
	landmark s2.LatLng
	radiusKm float64
}

func island(zone string, lat, lng, radiusKm float64) overrideEntry {
	return overrideEntry{zone: zone, landmark: s2.LatLngFromDegrees(lat, lng), radiusKm: radiusKm}
}

// antiMeridianIslands lists the override landmarks. Radii roughly cover
// each island group's territorial waters.
var antiMeridianIslands = []overrideEntry{
	island("Pacific/Apia", -13.7590, -171.7770, 150),
	island("Pacific/Pago_Pago", -14.2756, -170.7020, 60),
	island("Pacific/Tongatapu", -21.1394, -175.2049, 250),
	island("Pacific/Fiji", -18.1416, 178.4419, 350),
	island("Pacific/Funafuti", -8.5211, 179.1983, 200),
	island("Pacific/Wallis", -13.2825, -176.1736, 100),
	island("Pacific/Fakaofo", -9.3803, -171.2188, 100),
	island("Pacific/Niue", -19.0544, -169.8672, 60),
	island("Pacific/Tarawa", 1.4518, 172.9717, 250),
	island("Pacific/Kanton", -2.8106, -171.6814, 150),
	island("Pacific/Kiritimati", 1.8721, -157.4278, 250),
	island("Pacific/Majuro", 7.0897, 171.3803, 250),
	island("Pacific/Chatham", -43.9535, -176.5597, 100),
}

// normalizeDegrees maps a longitude delta into [-180, 180).
func normalizeDegrees(d float64) float64 {
	d = math.Mod(d+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}

// haversine returns the great-circle angle between a and b. The longitude
// delta is normalised first so points either side of ±180° are close.
func haversine(a, b s2.LatLng) s1.Angle {
	lat1, lat2 := a.Lat.Radians(), b.Lat.Radians()
	dLat := lat2 - lat1
	dLng := (s1.Angle(normalizeDegrees(b.Lng.Degrees()-a.Lng.Degrees())) * s1.Degree).Radians()

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	return s1.Angle(2*math.Asin(math.Sqrt(math.Min(1, h)))) * s1.Radian
}

// angleToKm converts a central angle to kilometres on the Earth's surface.
func angleToKm(a s1.Angle) float64 {
	return a.Radians() * earthRadiusKm
}

// nearestOverride returns the island zone that should replace an absent or
// generic answer for (lat, lng), if any.
func nearestOverride(lat, lng float64) (overrideEntry, float64, bool) {
	q := s2.LatLngFromDegrees(lat, lng)

	var (
		nearest overrideEntry
		bestKm  = math.Inf(1)
	)
	for _, e := range antiMeridianIslands {
		if km := angleToKm(haversine(q, e.landmark)); km < bestKm {
			nearest, bestKm = e, km
		}
	}
	if bestKm <= nearest.radiusKm || bestKm <= overrideFallbackRadiusKm {
		return nearest, bestKm, true
	}
	return overrideEntry{}, bestKm, false
}
