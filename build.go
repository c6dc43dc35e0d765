package tzbed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// zonePropertyKeys are the feature properties tried, in order, for the zone
// identifier. timezone-boundary-builder uses "tzid".
var zonePropertyKeys = []string{"tzid", "TZID", "name"}

// BuildStats summarises a BuildCatalogue run.
type BuildStats struct {
	Rows    int // rows written
	Skipped int // features without a polygon geometry or a zone
}

// LoadFeatureCollection reads a GeoJSON FeatureCollection from disk.
func LoadFeatureCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decoding feature collection %s: %w", path, err)
	}
	return fc, nil
}

// BuildCatalogue writes every Polygon and MultiPolygon feature of fc into a
// SQLite catalogue at dbPath. An existing file is replaced.
func BuildCatalogue(ctx context.Context, dbPath string, fc *geojson.FeatureCollection) (BuildStats, error) {
	var stats BuildStats
	rows := make([]Row, 0, len(fc.Features))
	for _, f := range fc.Features {
		zone := featureZone(f)
		if zone == "" || f.Geometry == nil {
			stats.Skipped++
			continue
		}
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			stats.Skipped++
			continue
		}
		payload, err := geojson.NewGeometry(f.Geometry).MarshalJSON()
		if err != nil {
			return stats, fmt.Errorf("encoding geometry for %s: %w", zone, err)
		}
		rows = append(rows, Row{Geometry: payload, Zone: zone})
	}

	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return stats, fmt.Errorf("removing old catalogue: %w", err)
	}
	n, err := WriteRows(ctx, dbPath, rows)
	stats.Rows = n
	return stats, err
}

func featureZone(f *geojson.Feature) string {
	for _, key := range zonePropertyKeys {
		if zone := strings.TrimSpace(f.Properties.MustString(key, "")); zone != "" {
			return zone
		}
	}
	return ""
}

// WriteRows appends raw rows to the catalogue at dbPath, creating the file
// and schema when needed. Row IDs are assigned by the database. Empty
// geometry or zone values are stored as NULL.
func WriteRows(ctx context.Context, dbPath string, rows []Row) (int, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return 0, fmt.Errorf("creating catalogue directory: %w", err)
	}
	db, err := openSQLite(ctx, dbPath, false)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, catalogueSchema); err != nil {
		return 0, fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertRowSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, nullable(string(row.Geometry)), nullable(row.Zone)); err != nil {
			return i, fmt.Errorf("inserting row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing catalogue: %w", err)
	}
	return len(rows), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
