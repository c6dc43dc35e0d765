package tzbed

import (
	"context"
	"fmt"
)

// minCatalogueRows is the smallest row count a real zone catalogue has.
// timezone-boundary-builder ships roughly 450 zones, several of them as
// multiple rows.
const minCatalogueRows = 400

// rowCounter is implemented by catalogues that can report their size.
type rowCounter interface {
	Count(ctx context.Context) (int, error)
}

// validationCoord defines known coordinates for lookup validation.
type validationCoord struct {
	lat, lng float64
	wantZone string
}

// knownCoords are chosen well inside their zones so simplified boundary
// data still resolves them.
var knownCoords = []validationCoord{
	{30.0444, 31.2357, "Africa/Cairo"},
	{51.5074, -0.1278, "Europe/London"},
	{35.6762, 139.6503, "Asia/Tokyo"},
	{-33.8688, 151.2093, "Australia/Sydney"},
	{40.7128, -74.0060, "America/New_York"},
	{-13.7590, -171.7770, "Pacific/Apia"},
}

// ValidateCatalogue opens the configured catalogue and checks its size and
// that well-known coordinates resolve to their expected zones.
func ValidateCatalogue(opts ...Option) error {
	tz, err := NewTzBed(opts...)
	if err != nil {
		return err
	}
	return tz.validate(context.Background(), minCatalogueRows, knownCoords)
}

func (t *TzBed) validate(ctx context.Context, minRows int, coords []validationCoord) error {
	if counter, ok := t.config.Catalogue.(rowCounter); ok {
		n, err := counter.Count(ctx)
		if err != nil {
			return fmt.Errorf("counting catalogue: %w", err)
		}
		if n < minRows {
			return fmt.Errorf("catalogue row count too low: got %d, want >= %d", n, minRows)
		}
	}

	for _, tc := range coords {
		m, err := t.lookup(ctx, tc.lat, tc.lng)
		if err != nil {
			return fmt.Errorf("lookup(%v, %v): %w", tc.lat, tc.lng, err)
		}
		if m.Zone != tc.wantZone {
			return fmt.Errorf("lookup(%v, %v) = %q (%s), want %q", tc.lat, tc.lng, m.Zone, m.Source, tc.wantZone)
		}
	}
	return nil
}
