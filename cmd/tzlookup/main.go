// Command tzlookup prints the time zone containing a coordinate.
//
// Usage:
//
//	tzlookup <latitude> <longitude>
//
// Settings come from TZBED_* environment variables, a .env file or a
// tzbed.yaml in the working directory (see internal/config). The command
// exits with status 1 when no zone matches.
package main

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/andreiashu/tzbed"
	"github.com/andreiashu/tzbed/internal/config"
	"github.com/andreiashu/tzbed/internal/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: tzlookup <latitude> <longitude>")
		return 2
	}
	lat, errLat := strconv.ParseFloat(args[0], 64)
	lng, errLng := strconv.ParseFloat(args[1], 64)
	if errLat != nil || errLng != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid coordinate %q %q\n", args[0], args[1])
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	log := logger.New(cfg.LogLevel)
	defer log.Sync()

	tz, err := tzbed.NewTzBed(cfg.Options(log)...)
	if err != nil {
		log.Error("init failed", zap.Error(err))
		return 2
	}

	m := tz.Lookup(lat, lng)
	log.Debug("lookup",
		zap.Float64("lat", lat),
		zap.Float64("lng", lng),
		zap.String("zone", m.Zone),
		zap.Stringer("source", m.Source),
		zap.Strings("candidates", m.Candidates),
	)
	if m.Zone == "" {
		fmt.Fprintln(os.Stderr, "no time zone found")
		return 1
	}
	fmt.Println(m.Zone)
	return 0
}
