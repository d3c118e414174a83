package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.Performance.BatchSize != 4096 || cfg.Limits.UndoDepth != 5 || cfg.Limits.ClipboardLimit != 10 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "builder.yaml")
	raw := []byte("performance:\n  batch_size: 1000\nlimits:\n  undo_depth: 3\nserver:\n  admins: [zed, amy]\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Performance.BatchSize != 1000 || cfg.Limits.UndoDepth != 3 {
		t.Fatalf("overlay not applied: %+v", cfg)
	}
	if cfg.Limits.MaxSelectionVolume != 250000 || cfg.Performance.TickRateHz != 20 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if !cfg.IsAdmin("amy") || cfg.IsAdmin("bob") {
		t.Fatalf("admin lookup wrong: %v", cfg.Server.Admins)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if cfg.Performance.BatchSize != 4096 {
		t.Fatalf("expected defaults, got %+v", cfg.Performance)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"batch size", func(c *Config) { c.Performance.BatchSize = 0 }},
		{"tick rate", func(c *Config) { c.Performance.TickRateHz = 0 }},
		{"undo depth", func(c *Config) { c.Limits.UndoDepth = -1 }},
		{"clipboard", func(c *Config) { c.Limits.ClipboardLimit = 0 }},
		{"dimensions", func(c *Config) { c.World.Dimensions = nil }},
		{"y range", func(c *Config) { c.World.MaxY = c.World.MinY }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mut(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestNormalizeClampsSyncThresholdAndDedupesDimensions(t *testing.T) {
	cfg := Defaults()
	cfg.Performance.BatchSize = 100
	cfg.Performance.SyncThreshold = 500
	cfg.World.Dimensions = []string{"Overworld", "overworld", " nether "}
	cfg.Normalize()
	if cfg.Performance.SyncThreshold != 100 {
		t.Fatalf("sync threshold=%d", cfg.Performance.SyncThreshold)
	}
	if len(cfg.World.Dimensions) != 2 || cfg.World.Dimensions[1] != "nether" {
		t.Fatalf("dimensions=%v", cfg.World.Dimensions)
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "builder.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Zones.DefaultRadius != 32 || !cfg.Zones.RequireZone {
		t.Fatalf("zones=%+v", cfg.Zones)
	}
}

func TestResolve(t *testing.T) {
	cfg := Defaults()
	cfg.Paths.DataDir = "/srv/data"
	if got := cfg.Resolve("zones.json"); got != filepath.Join("/srv/data", "zones.json") {
		t.Fatalf("got %s", got)
	}
	if got := cfg.Resolve("/abs/x"); got != "/abs/x" {
		t.Fatalf("got %s", got)
	}
}
