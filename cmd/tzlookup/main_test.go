package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/andreiashu/tzbed"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	rows := []tzbed.Row{
		{Geometry: []byte(`[[[-2,50],[1,50],[1,53],[-2,53]]]`), Zone: "Europe/London"},
		{Geometry: []byte(`{"type":"Polygon","coordinates":[[[29,28],[33,28],[33,32],[29,32],[29,28]]]}`), Zone: "Africa/Cairo"},
	}
	if _, err := tzbed.WriteRows(context.Background(), filepath.Join(dir, "timezones.db"), rows); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}
	t.Setenv("TZBED_CATALOGUE_DIR", dir)
	t.Setenv("TZBED_LOG_LEVEL", "error")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"london", []string{"51.5074", "-0.1278"}, 0},
		{"cairo", []string{"30.0444", "31.2357"}, 0},
		{"open ocean", []string{"-30", "-40"}, 1},
		{"out of range", []string{"95", "0"}, 1},
		{"missing argument", []string{"51.5"}, 2},
		{"not a number", []string{"north", "-0.12"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args); got != tt.want {
				t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestRun_BadConfig(t *testing.T) {
	t.Setenv("TZBED_BATCH_SIZE", "0")
	if got := run([]string{"51.5", "-0.12"}); got != 2 {
		t.Errorf("run with invalid config = %d, want 2", got)
	}
}
