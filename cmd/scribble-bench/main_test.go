package main

import (
	"flag"
	"io"
	"testing"
	"time"

	"github.com/vango-go/scribble/pkg/canvas"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseConfigProfiles(t *testing.T) {
	cfg, err := parseConfig(newFlagSet(), []string{"-profile=fast"})
	if err != nil {
		t.Fatalf("parseConfig() error = %v", err)
	}
	if cfg.Clients != 20 || cfg.StrokeLen != 20 || cfg.JSONOutput != "-" {
		t.Errorf("fast profile = %+v", cfg)
	}

	cfg, err = parseConfig(newFlagSet(), []string{"-clients=3", "-duration=2s", "-stroke=5", "-mem-limit=1GiB", "-sequential"})
	if err != nil {
		t.Fatalf("parseConfig() error = %v", err)
	}
	if cfg.Clients != 3 || cfg.Duration != 2*time.Second || cfg.StrokeLen != 5 || !cfg.Sequential {
		t.Errorf("overrides = %+v", cfg)
	}
	if cfg.MemLimitBytes != gib {
		t.Errorf("MemLimitBytes = %d, want %d", cfg.MemLimitBytes, gib)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := [][]string{
		{"-profile=huge"},
		{"-clients=0"},
		{"-rps=0"},
		{"-stroke=0"},
		{"-tick-rate=0"},
		{"-duration=soon"},
		{"-mem-limit=3parsecs"},
	}
	for _, args := range tests {
		if _, err := parseConfig(newFlagSet(), args); err == nil {
			t.Errorf("parseConfig(%v) error = nil", args)
		}
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"512", 512},
		{"2kb", 2000},
		{"1.5 KiB", 1536},
		{"2GiB", 2 * gib},
	}
	for _, tt := range tests {
		got, err := parseBytes(tt.in)
		if err != nil {
			t.Errorf("parseBytes(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseBytes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"", "GiB", "1xb"} {
		if _, err := parseBytes(bad); err == nil {
			t.Errorf("parseBytes(%q) error = nil", bad)
		}
	}
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(sorted, 0.5); got != 5 {
		t.Errorf("p50 = %v, want 5", got)
	}
	if got := percentile(sorted, 0.99); got != 10 {
		t.Errorf("p99 = %v, want 10", got)
	}
	if got := percentile(nil, 0.5); got != 0 {
		t.Errorf("empty p50 = %v, want 0", got)
	}
}

func TestPointTimeout(t *testing.T) {
	if got := pointTimeout(1, 90); got != 10*time.Second {
		t.Errorf("pointTimeout(1, 90) = %v, want 10s", got)
	}
	if got := pointTimeout(100, 90); got != 2*time.Second {
		t.Errorf("pointTimeout(100, 90) = %v, want the 2s floor", got)
	}
}

func TestContainsPoint(t *testing.T) {
	var kinds primitiveCounts
	var counters benchCounters
	pt := makePoint(3, 9)
	prims := []canvas.Primitive{
		{Kind: canvas.KindPolyline, Points: []canvas.Point{canvas.Pt(0, 0)}},
		{Kind: canvas.KindPolyline, Points: []canvas.Point{canvas.Pt(1, 1), pt}},
		{Kind: canvas.KindRect},
	}
	if !containsPoint(prims, pt, &kinds, &counters) {
		t.Error("containsPoint() = false, want true")
	}
	if containsPoint(prims[:1], pt, &kinds, &counters) {
		t.Error("containsPoint() = true for a list without the point")
	}
	if got := counters.primitives.Load(); got != 4 {
		t.Errorf("primitives counted = %d, want 4", got)
	}
	snap := kinds.snapshot()
	if snap[canvas.KindPolyline.String()] != 3 || snap[canvas.KindRect.String()] != 1 {
		t.Errorf("kinds = %v", snap)
	}
}
