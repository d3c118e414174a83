package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks invalid options, whether they come from builder.yaml
// or from a command's arguments.
var ErrConfiguration = errors.New("invalid configuration")

type Config struct {
	Limits      Limits      `yaml:"limits"`
	Zones       Zones       `yaml:"zones"`
	Permissions Permissions `yaml:"permissions"`
	Performance Performance `yaml:"performance"`
	Paths       Paths       `yaml:"paths"`
	Server      Server      `yaml:"server"`
	Log         Log         `yaml:"log"`
	World       World       `yaml:"world"`
}

type Limits struct {
	MaxSelectionVolume int `yaml:"max_selection_volume"`
	MaxPasteVolume     int `yaml:"max_paste_volume"`
	UndoDepth          int `yaml:"undo_depth"`
	ClipboardLimit     int `yaml:"clipboard_limit"`
	ConfirmThreshold   int `yaml:"confirm_threshold"`
}

type Zones struct {
	RequireZone          bool   `yaml:"require_zone"`
	DefaultRadius        int    `yaml:"default_radius"`
	DefaultDurationHours int    `yaml:"default_duration_hours"`
	SweepEveryTicks      int    `yaml:"sweep_every_ticks"`
	File                 string `yaml:"file"`
}

// Permissions gate the opaque payloads a blueprint may carry into the world.
type Permissions struct {
	AllowInventories bool `yaml:"allow_inventories"`
	AllowEntities    bool `yaml:"allow_entities"`
}

type Performance struct {
	BatchSize     int `yaml:"batch_size"`
	SyncThreshold int `yaml:"sync_threshold"`
	TickRateHz    int `yaml:"tick_rate_hz"`
}

type Paths struct {
	DataDir         string `yaml:"data_dir"`
	BlueprintFolder string `yaml:"blueprint_folder"`
	SharedFolder    string `yaml:"shared_folder"`
}

type Server struct {
	Addr      string   `yaml:"addr"`
	AdminAddr string   `yaml:"admin_addr"`
	Admins    []string `yaml:"admins"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type World struct {
	Dimensions []string `yaml:"dimensions"`
	BoundaryR  int      `yaml:"boundary_r"`
	MinY       int      `yaml:"min_y"`
	MaxY       int      `yaml:"max_y"`
}

func Defaults() Config {
	return Config{
		Limits: Limits{
			MaxSelectionVolume: 250000,
			MaxPasteVolume:     100000,
			UndoDepth:          5,
			ClipboardLimit:     10,
			ConfirmThreshold:   5000,
		},
		Zones: Zones{
			RequireZone:          true,
			DefaultRadius:        32,
			DefaultDurationHours: 12,
			SweepEveryTicks:      20,
			File:                 "zones.json",
		},
		Performance: Performance{
			BatchSize:     4096,
			SyncThreshold: 512,
			TickRateHz:    20,
		},
		Paths: Paths{
			DataDir:         "data",
			BlueprintFolder: "blueprints",
			SharedFolder:    "blueprints/shared",
		},
		Server: Server{
			Addr:      ":8080",
			AdminAddr: "127.0.0.1:8081",
		},
		Log: Log{Level: "info", Format: "text"},
		World: World{
			Dimensions: []string{"overworld", "nether", "the_end"},
			BoundaryR:  30000,
			MinY:       -64,
			MaxY:       319,
		},
	}
}

// Load overlays path onto Defaults. A missing file yields the defaults along
// with the os error so callers can decide whether to write one.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		cfg.Normalize()
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("builder.yaml: %w: %v", ErrConfiguration, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("builder.yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	dims := map[string]bool{}
	out := c.World.Dimensions[:0]
	for _, d := range c.World.Dimensions {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" || dims[d] {
			continue
		}
		dims[d] = true
		out = append(out, d)
	}
	c.World.Dimensions = out
	sort.Strings(c.Server.Admins)
	if c.Performance.SyncThreshold > c.Performance.BatchSize {
		c.Performance.SyncThreshold = c.Performance.BatchSize
	}
}

func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
	}
	l := c.Limits
	switch {
	case l.MaxSelectionVolume <= 0:
		return bad("limits.max_selection_volume must be > 0")
	case l.MaxPasteVolume <= 0:
		return bad("limits.max_paste_volume must be > 0")
	case l.UndoDepth <= 0:
		return bad("limits.undo_depth must be > 0")
	case l.ClipboardLimit <= 0:
		return bad("limits.clipboard_limit must be > 0")
	case l.ConfirmThreshold <= 0:
		return bad("limits.confirm_threshold must be > 0")
	}
	if c.Zones.DefaultRadius <= 0 {
		return bad("zones.default_radius must be > 0")
	}
	if c.Zones.DefaultDurationHours < 0 {
		return bad("zones.default_duration_hours must be >= 0")
	}
	if c.Zones.SweepEveryTicks <= 0 {
		return bad("zones.sweep_every_ticks must be > 0")
	}
	p := c.Performance
	if p.BatchSize < 1 {
		return bad("performance.batch_size must be >= 1")
	}
	if p.SyncThreshold < 0 {
		return bad("performance.sync_threshold must be >= 0")
	}
	if p.TickRateHz < 1 || p.TickRateHz > 1000 {
		return bad("performance.tick_rate_hz must be in [1,1000], got %d", p.TickRateHz)
	}
	if len(c.World.Dimensions) == 0 {
		return bad("world.dimensions must not be empty")
	}
	if c.World.MaxY <= c.World.MinY {
		return bad("world.max_y must be > world.min_y")
	}
	if c.World.BoundaryR < 0 {
		return bad("world.boundary_r must be >= 0")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return bad("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func (c Config) IsAdmin(actor string) bool {
	i := sort.SearchStrings(c.Server.Admins, actor)
	return i < len(c.Server.Admins) && c.Server.Admins[i] == actor
}

// Resolve joins rel onto the data dir unless it is already absolute.
func (c Config) Resolve(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Paths.DataDir, rel)
}

func WriteDefault(path string) error {
	b, err := yaml.Marshal(Defaults())
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, b, 0o644)
}
