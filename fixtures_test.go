package tzbed

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// box returns a closed rectangular ring in GeoJSON (lon, lat) order.
func box(minLng, minLat, maxLng, maxLat float64) orb.Ring {
	return orb.Ring{
		{minLng, minLat},
		{maxLng, minLat},
		{maxLng, maxLat},
		{minLng, maxLat},
		{minLng, minLat},
	}
}

func zoneFeatureOf(zone string, g orb.Geometry) *geojson.Feature {
	f := geojson.NewFeature(g)
	f.Properties["tzid"] = zone
	return f
}

// fixtureCollection is a tiny stand-in for the real boundary data. Boxes
// are generous around each city; the order of features is deliberate so
// ranking, not catalogue position, decides the overlaps.
func fixtureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(zoneFeatureOf("Etc/GMT-2", orb.Polygon{box(25, 22, 35, 35)}))
	fc.Append(zoneFeatureOf("Africa/Cairo", orb.Polygon{box(29, 28, 33, 32)}))
	fc.Append(zoneFeatureOf("posix/Europe/London", orb.Polygon{box(-2, 50, 1, 53)}))
	fc.Append(zoneFeatureOf("Europe/London", orb.Polygon{box(-2, 50, 1, 53)}))
	fc.Append(zoneFeatureOf("America/Sao_Paulo", orb.MultiPolygon{
		{box(-50, -20, -48, -18)},
		{box(-47, -24, -45, -22)},
	}))
	fc.Append(zoneFeatureOf("Etc/GMT", orb.Polygon{box(-5, -5, 5, 5)}))
	fc.Append(zoneFeatureOf("Etc/GMT+11", orb.Polygon{box(-175, -16, -168, -11)}))
	fc.Append(zoneFeatureOf("Asia/Tokyo", orb.Polygon{box(138, 34, 141, 37)}))
	fc.Append(zoneFeatureOf("Australia/Sydney", orb.Polygon{box(150, -35, 152, -33)}))
	fc.Append(zoneFeatureOf("America/New_York", orb.Polygon{box(-76, 39, -72, 42)}))
	return fc
}

// buildFixture writes the fixture catalogue into dir and returns dir.
func buildFixture(dir string) (string, error) {
	_, err := BuildCatalogue(context.Background(), filepath.Join(dir, catalogueFile), fixtureCollection())
	return dir, err
}

// polygonRow encodes ring as a typed Polygon payload.
func polygonRow(zone string, ring orb.Ring) Row {
	payload, err := geojson.NewGeometry(orb.Polygon{ring}).MarshalJSON()
	if err != nil {
		panic(err)
	}
	return Row{Geometry: payload, Zone: zone}
}

var errReadFailed = errors.New("read failed")

// memCatalogue is an in-memory Catalogue that counts its use and can fail
// on demand.
type memCatalogue struct {
	rows     []Row
	failAt   int // ReadBatch fails once offset reaches failAt; < 0 never
	pageSize int // caps the rows of every ReadBatch when > 0
	openErr  error

	opens  atomic.Int32
	closes atomic.Int32
	reads  atomic.Int32
}

func newMemCatalogue(rows ...Row) *memCatalogue {
	return &memCatalogue{rows: rows, failAt: -1}
}

func (m *memCatalogue) Open(context.Context) (CatalogueReader, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.opens.Add(1)
	return &memReader{cat: m}, nil
}

type memReader struct {
	cat *memCatalogue
}

func (r *memReader) ReadBatch(_ context.Context, offset, limit int) ([]Row, error) {
	r.cat.reads.Add(1)
	if r.cat.failAt >= 0 && offset >= r.cat.failAt {
		return nil, errReadFailed
	}
	if offset >= len(r.cat.rows) {
		return nil, nil
	}
	if r.cat.pageSize > 0 {
		limit = min(limit, r.cat.pageSize)
	}
	end := min(offset+limit, len(r.cat.rows))
	return append([]Row(nil), r.cat.rows[offset:end]...), nil
}

func (r *memReader) Close() error {
	r.cat.closes.Add(1)
	return nil
}
