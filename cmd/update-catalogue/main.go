// Command update-catalogue rebuilds the tzbed catalogue from a
// timezone-boundary-builder GeoJSON release.
//
// Usage:
//
//	go run ./cmd/update-catalogue combined.json
//
// This writes timezones.db and timezones.zip into the catalogue directory
// (TZBED_CATALOGUE_DIR, default ./tzbed-data) and validates the result.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/andreiashu/tzbed"
	"github.com/andreiashu/tzbed/internal/config"
	"github.com/andreiashu/tzbed/internal/logger"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: update-catalogue <combined.geojson>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	defer log.Sync()

	if err := update(context.Background(), cfg, os.Args[1], log); err != nil {
		log.Error("update failed", zap.Error(err))
		os.Exit(1)
	}
}

func update(ctx context.Context, cfg *config.Config, source string, log *zap.Logger) error {
	log.Info("loading boundaries", zap.String("source", source))
	fc, err := tzbed.LoadFeatureCollection(source)
	if err != nil {
		return err
	}

	dbPath := filepath.Join(cfg.CatalogueDir, "timezones.db")
	stats, err := tzbed.BuildCatalogue(ctx, dbPath, fc)
	if err != nil {
		return fmt.Errorf("building catalogue: %w", err)
	}
	log.Info("catalogue built",
		zap.String("path", dbPath),
		zap.Int("rows", stats.Rows),
		zap.Int("skipped", stats.Skipped),
	)

	zipPath := cfg.ArchivePath
	if zipPath == "" {
		zipPath = filepath.Join(cfg.CatalogueDir, "timezones.zip")
	}
	if err := tzbed.PackageCatalogue(dbPath, zipPath); err != nil {
		return fmt.Errorf("packaging catalogue: %w", err)
	}
	log.Info("catalogue packaged", zap.String("archive", zipPath))

	if err := tzbed.ValidateCatalogue(cfg.Options(log)...); err != nil {
		return fmt.Errorf("validating catalogue: %w", err)
	}
	log.Info("catalogue validated")
	return nil
}
