package tzbed

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// GeoJSON depths of bare coordinate arrays: a ring of points of numbers is a
// Polygon, one level deeper is a MultiPolygon.
const (
	polygonDepth      = 3
	multiPolygonDepth = 4
)

// minRingPoints is the smallest number of valid points a ring may have.
const minRingPoints = 3

// zoneFeature is one outer ring together with the zone that owns it.
// The bound is computed once when the feature is decoded and lives only
// as long as the batch that produced it.
type zoneFeature struct {
	zone  string
	ring  orb.Ring
	bound orb.Bound
}

// contains runs the bounding-box pre-filter followed by the exact ring test.
func (f zoneFeature) contains(pt orb.Point) bool {
	if !f.bound.Contains(pt) {
		return false
	}
	return ringContains(f.ring, pt)
}

// decodeRow turns a catalogue row into zero or more zone features.
// A row that cannot be decoded, or has no zone identifier, contributes
// nothing; errors never leave this function.
func decodeRow(row Row) (features []zoneFeature) {
	defer func() {
		if r := recover(); r != nil {
			features = nil
		}
	}()

	if row.Zone == "" || len(bytes.TrimSpace(row.Geometry)) == 0 {
		return nil
	}

	var payload any
	dec := json.NewDecoder(bytes.NewReader(row.Geometry))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil
	}

	for _, ring := range outerRings(payload) {
		if len(ring) == 0 {
			continue
		}
		features = append(features, zoneFeature{
			zone:  row.Zone,
			ring:  ring,
			bound: ring.Bound(),
		})
	}
	return features
}

// outerRings extracts the outer ring of every polygon in a payload. Typed
// geometries are dispatched strictly by their "type" marker, bare
// coordinate arrays and objects with a missing or null marker by nesting
// depth.
func outerRings(payload any) []orb.Ring {
	switch v := payload.(type) {
	case map[string]any:
		coords := v["coordinates"]
		marker := v["type"]
		if marker == nil {
			return ringsByDepth(coords)
		}
		kind, _ := marker.(string)
		switch kind {
		case "Polygon":
			return polygonRings(coords)
		case "MultiPolygon":
			return multiPolygonRings(coords)
		default:
			return nil
		}
	case []any:
		return ringsByDepth(v)
	default:
		return nil
	}
}

func ringsByDepth(coords any) []orb.Ring {
	switch nestingDepth(coords) {
	case polygonDepth:
		return polygonRings(coords)
	case multiPolygonDepth:
		return multiPolygonRings(coords)
	default:
		return nil
	}
}

// nestingDepth follows the first element at every level down to a number.
// It returns -1 when the structure is empty or bottoms out in something
// that is not numeric.
func nestingDepth(v any) int {
	list, ok := v.([]any)
	if !ok {
		if _, numeric := parseDegrees(v); numeric {
			return 0
		}
		return -1
	}
	if len(list) == 0 {
		return -1
	}
	d := nestingDepth(list[0])
	if d < 0 {
		return -1
	}
	return d + 1
}

func polygonRings(coords any) []orb.Ring {
	if ring := polygonOuter(coords); ring != nil {
		return []orb.Ring{ring}
	}
	return nil
}

func multiPolygonRings(coords any) []orb.Ring {
	polys, ok := coords.([]any)
	if !ok {
		return nil
	}
	rings := make([]orb.Ring, 0, len(polys))
	for _, p := range polys {
		if ring := polygonOuter(p); ring != nil {
			rings = append(rings, ring)
		}
	}
	return rings
}

// polygonOuter returns the first coordinate group of a polygon. Holes are
// ignored.
func polygonOuter(coords any) orb.Ring {
	groups, ok := coords.([]any)
	if !ok || len(groups) == 0 {
		return nil
	}
	return parseRing(groups[0])
}

// parseRing converts [[lon, lat], ...] into a closed ring. Pairs that do not
// parse are dropped; rings left with fewer than three points are discarded.
func parseRing(raw any) orb.Ring {
	points, ok := raw.([]any)
	if !ok {
		return nil
	}
	ring := make(orb.Ring, 0, len(points)+1)
	for _, p := range points {
		pair, ok := p.([]any)
		if !ok || len(pair) < 2 {
			continue
		}
		lon, okLon := parseDegrees(pair[0])
		lat, okLat := parseDegrees(pair[1])
		if !okLon || !okLat {
			continue
		}
		ring = append(ring, orb.Point{lon, lat})
	}
	if len(ring) < minRingPoints {
		return nil
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

// parseDegrees accepts JSON numbers and numeric strings.
func parseDegrees(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch n := v.(type) {
	case json.Number:
		f, err = n.Float64()
	case float64:
		f = n
	case int:
		f = float64(n)
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
