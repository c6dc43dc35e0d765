package tzbed

import (
	"maps"
	"slices"
	"strings"
)

// genericZonePrefix marks fixed-offset placeholder zones such as Etc/GMT+5.
const genericZonePrefix = "Etc/"

// Penalties used to rank named zones when several polygons contain the
// point. The values are empirical; lower totals win.
const (
	offsetNamePenalty    = 50  // contains "GMT"
	noRegionPenalty      = 50  // no "Area/Location" separator
	nonCanonicalPenalty  = 100 // posix/, right/ or Factory
	offsetNameMarker     = "GMT"
	regionSeparator      = "/"
	posixZonePrefix      = "posix/"
	leapSecondZonePrefix = "right/"
	factoryZone          = "Factory"
)

// hitSet accumulates matching zones per batch. Reading it back orders zones
// by batch sequence number, so the result does not depend on the order in
// which workers finished.
type hitSet struct {
	byBatch map[int][]string
}

func newHitSet() hitSet {
	return hitSet{byBatch: make(map[int][]string)}
}

func (h hitSet) add(batch int, zones []string) {
	h.byBatch[batch] = append(h.byBatch[batch], zones...)
}

// zones returns each zone once, in catalogue order.
func (h hitSet) zones() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, batch := range slices.Sorted(maps.Keys(h.byBatch)) {
		for _, z := range h.byBatch[batch] {
			if _, dup := seen[z]; dup {
				continue
			}
			seen[z] = struct{}{}
			out = append(out, z)
		}
	}
	return out
}

// isGenericZone reports whether zone is a fixed-offset placeholder.
func isGenericZone(zone string) bool {
	return strings.HasPrefix(zone, genericZonePrefix)
}

// zonePenalty scores how canonical a named zone looks.
func zonePenalty(zone string) int {
	p := 0
	if strings.Contains(zone, offsetNameMarker) {
		p += offsetNamePenalty
	}
	if !strings.Contains(zone, regionSeparator) {
		p += noRegionPenalty
	}
	if strings.HasPrefix(zone, posixZonePrefix) ||
		strings.HasPrefix(zone, leapSecondZonePrefix) ||
		zone == factoryZone {
		p += nonCanonicalPenalty
	}
	return p
}

// bestZone picks one answer from all matching zones. Named zones beat
// generic ones; among named zones the lowest penalty wins and ties keep
// the earlier zone. With only generic zones the first one is returned.
// An empty input returns "".
func bestZone(zones []string) string {
	var (
		firstGeneric string
		best         string
		bestPenalty  int
	)
	for _, z := range zones {
		if isGenericZone(z) {
			if firstGeneric == "" {
				firstGeneric = z
			}
			continue
		}
		if p := zonePenalty(z); best == "" || p < bestPenalty {
			best, bestPenalty = z, p
		}
	}
	if best != "" {
		return best
	}
	return firstGeneric
}
