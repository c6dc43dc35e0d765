// Package tzbed resolves geographic coordinates to IANA time-zone names
// offline, by testing the point against a catalogue of zone boundary
// polygons stored in SQLite.
package tzbed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of catalogue rows handed to each worker.
// It affects throughput only, never the answer.
const DefaultBatchSize = 256

// TzBedConfig contains configuration options for TzBed initialization.
type TzBedConfig struct {
	CatalogueDir string      // Directory holding timezones.db (default: "./tzbed-data")
	ArchivePath  string      // Zip archive to extract from (default: CatalogueDir/timezones.zip)
	BatchSize    int         // Rows per worker (default: DefaultBatchSize)
	Workers      int         // Max concurrently running workers (default: GOMAXPROCS)
	Logger       *zap.Logger // Logger (default: no-op)
	Catalogue    Catalogue   // Overrides the SQLite catalogue when set
}

// Option is a functional option for configuring TzBed.
type Option func(*TzBedConfig)

// WithCatalogueDir sets the directory holding the catalogue database.
func WithCatalogueDir(dir string) Option {
	return func(c *TzBedConfig) {
		c.CatalogueDir = dir
	}
}

// WithArchivePath sets the zip archive the catalogue is extracted from.
func WithArchivePath(path string) Option {
	return func(c *TzBedConfig) {
		c.ArchivePath = path
	}
}

// WithBatchSize sets how many catalogue rows each worker processes.
func WithBatchSize(n int) Option {
	return func(c *TzBedConfig) {
		c.BatchSize = n
	}
}

// WithWorkers bounds how many workers run at the same time.
func WithWorkers(n int) Option {
	return func(c *TzBedConfig) {
		c.Workers = n
	}
}

// WithLogger sets the logger used for warnings and per-query diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *TzBedConfig) {
		c.Logger = l
	}
}

// WithCatalogue replaces the SQLite catalogue with another implementation.
func WithCatalogue(cat Catalogue) Option {
	return func(c *TzBedConfig) {
		c.Catalogue = cat
	}
}

// defaultConfig returns the default configuration.
func defaultConfig() *TzBedConfig {
	return &TzBedConfig{
		CatalogueDir: "./tzbed-data",
		BatchSize:    DefaultBatchSize,
		Workers:      runtime.GOMAXPROCS(0),
	}
}

// MatchSource tells where a Match came from.
type MatchSource uint8

const (
	SourceNone     MatchSource = iota // no zone found
	SourcePolygon                     // a catalogue polygon contains the point
	SourceOverride                    // anti-meridian island table
)

func (s MatchSource) String() string {
	switch s {
	case SourcePolygon:
		return "polygon"
	case SourceOverride:
		return "override"
	default:
		return "none"
	}
}

// Match is the outcome of a lookup. Zone is empty when nothing matched.
type Match struct {
	Zone       string      // chosen zone identifier
	Source     MatchSource // how Zone was chosen
	Candidates []string    // every zone whose polygon contains the point, in catalogue order
}

// TzBed answers coordinate to time-zone queries.
// Safe for concurrent use; each query reads the catalogue independently.
type TzBed struct {
	config     *TzBedConfig
	dispatcher *dispatcher
	log        *zap.Logger
}

// NewTzBed creates a TzBed. The catalogue is not opened until the first
// lookup, so a missing catalogue is not an error here; lookups simply
// return no match.
//
// Example:
//
//	tz, err := NewTzBed(WithCatalogueDir("/var/lib/tzbed"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(tz.FindTimeZone(51.5074, -0.1278)) // Europe/London
func NewTzBed(opts ...Option) (*TzBed, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("tzbed: batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("tzbed: workers must be positive, got %d", cfg.Workers)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Catalogue == nil {
		cfg.Catalogue = NewSQLiteCatalogue(cfg.CatalogueDir, cfg.ArchivePath)
	}

	return &TzBed{
		config: cfg,
		log:    cfg.Logger,
		dispatcher: &dispatcher{
			catalogue: cfg.Catalogue,
			batchSize: cfg.BatchSize,
			workers:   cfg.Workers,
			decode:    decodeRow,
			log:       cfg.Logger,
		},
	}, nil
}

// Singleton pattern for default TzBed instance.
var (
	defaultTzBed     *TzBed
	defaultTzBedOnce sync.Once
	defaultTzBedErr  error
)

// GetDefaultTzBed returns a shared TzBed using the default configuration.
func GetDefaultTzBed() (*TzBed, error) {
	defaultTzBedOnce.Do(func() {
		defaultTzBed, defaultTzBedErr = NewTzBed()
	})
	return defaultTzBed, defaultTzBedErr
}

// FindTimeZone resolves a coordinate with the default TzBed.
func FindTimeZone(lat, lng float64) string {
	tz, err := GetDefaultTzBed()
	if err != nil {
		return ""
	}
	return tz.FindTimeZone(lat, lng)
}

// FindTimeZone returns the zone identifier containing (lat, lng), or "" if
// there is none.
func (t *TzBed) FindTimeZone(lat, lng float64) string {
	return t.Lookup(lat, lng).Zone
}

// Lookup resolves (lat, lng) and reports how the answer was reached.
// Failures to read the catalogue are logged and yield an empty Match.
func (t *TzBed) Lookup(lat, lng float64) Match {
	m, err := t.lookup(context.Background(), lat, lng)
	if err != nil {
		if errors.Is(err, ErrCatalogueUnavailable) {
			t.log.Warn("catalogue unavailable", zap.Error(err))
		} else {
			t.log.Warn("lookup failed", zap.Float64("lat", lat), zap.Float64("lng", lng), zap.Error(err))
		}
		return Match{}
	}
	return m
}

func (t *TzBed) lookup(ctx context.Context, lat, lng float64) (Match, error) {
	if !validCoordinate(lat, lng) {
		t.log.Debug("coordinate out of range", zap.Float64("lat", lat), zap.Float64("lng", lng))
		return Match{}, nil
	}

	zones, err := t.dispatcher.collect(ctx, orb.Point{lng, lat})
	if err != nil {
		return Match{}, err
	}

	m := Match{Candidates: zones}
	if zone := bestZone(zones); zone != "" {
		m.Zone, m.Source = zone, SourcePolygon
	}
	if m.Zone == "" || isGenericZone(m.Zone) {
		if entry, km, ok := nearestOverride(lat, lng); ok {
			t.log.Debug("anti-meridian override",
				zap.String("replaced", m.Zone),
				zap.String("zone", entry.zone),
				zap.Float64("km", km),
			)
			m.Zone, m.Source = entry.zone, SourceOverride
		}
	}
	return m, nil
}

// validCoordinate rejects NaN, infinities and out-of-range degrees.
func validCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
