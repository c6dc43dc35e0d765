package tzbed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func TestBuildCatalogue(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(zoneFeatureOf("Europe/London", orb.Polygon{box(-2, 50, 1, 53)}))
	fc.Append(zoneFeatureOf("America/Sao_Paulo", orb.MultiPolygon{
		{box(-50, -20, -48, -18)},
		{box(-47, -24, -45, -22)},
	}))
	fc.Append(zoneFeatureOf("Europe/Paris", orb.Point{2.35, 48.85}))
	fc.Append(geojson.NewFeature(orb.Polygon{box(10, 10, 11, 11)}))

	upper := geojson.NewFeature(orb.Polygon{box(29, 28, 33, 32)})
	upper.Properties["TZID"] = "Africa/Cairo"
	fc.Append(upper)

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), catalogueFile)
	stats, err := BuildCatalogue(ctx, dbPath, fc)
	if err != nil {
		t.Fatalf("BuildCatalogue: %v", err)
	}
	if stats.Rows != 3 || stats.Skipped != 2 {
		t.Errorf("stats = %+v, want 3 rows and 2 skipped", stats)
	}

	reader, err := NewSQLiteCatalogue(filepath.Dir(dbPath), "").Open(ctx)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()
	rows, err := reader.ReadBatch(ctx, 0, 10)
	if err != nil {
		t.Fatalf("ReadBatch: %v", err)
	}

	wantRings := map[string]int{"Europe/London": 1, "America/Sao_Paulo": 2, "Africa/Cairo": 1}
	if len(rows) != len(wantRings) {
		t.Fatalf("got %d rows, want %d", len(rows), len(wantRings))
	}
	for _, row := range rows {
		if got := len(decodeRow(row)); got != wantRings[row.Zone] {
			t.Errorf("%s decodes to %d rings, want %d", row.Zone, got, wantRings[row.Zone])
		}
	}
}

func TestBuildCatalogue_ReplacesExisting(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), catalogueFile)
	if _, err := WriteRows(ctx, dbPath, fillerRows(5)); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}

	if _, err := BuildCatalogue(ctx, dbPath, fixtureCollection()); err != nil {
		t.Fatalf("BuildCatalogue: %v", err)
	}
	n, err := NewSQLiteCatalogue(filepath.Dir(dbPath), "").Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if want := len(fixtureCollection().Features); n != want {
		t.Errorf("Count = %d, want %d", n, want)
	}
}

func TestLoadFeatureCollection(t *testing.T) {
	data, err := fixtureCollection().MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "combined.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFeatureCollection(path)
	if err != nil {
		t.Fatalf("LoadFeatureCollection: %v", err)
	}
	if got, want := len(fc.Features), len(fixtureCollection().Features); got != want {
		t.Errorf("loaded %d features, want %d", got, want)
	}
	if zone := featureZone(fc.Features[1]); zone != "Africa/Cairo" {
		t.Errorf("second feature zone = %q, want Africa/Cairo", zone)
	}
}

func TestLoadFeatureCollection_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFeatureCollection(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("missing file did not fail")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"type":"FeatureCollection","features":[`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFeatureCollection(bad); err == nil {
		t.Error("truncated file did not fail")
	}
}
