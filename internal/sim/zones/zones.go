// Package zones tracks the temporary builder zones that gate where actors
// may edit the world.
package zones

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"onistone.build/internal/config"
	"onistone.build/internal/sim/voxel"
)

var (
	ErrZoneExists   = errors.New("zone already exists")
	ErrZoneNotFound = errors.New("zone not found")
)

type Zone struct {
	Name       string      `json:"name"`
	Owner      string      `json:"owner"`
	Min        voxel.Vec3i `json:"min"`
	Max        voxel.Vec3i `json:"max"`
	Dimension  string      `json:"dimension"`
	CreatedAt  time.Time   `json:"created_at"`
	ExpiresAt  *time.Time  `json:"expires_at,omitempty"`
	SharedWith []string    `json:"shared_with,omitempty"`
}

func (z *Zone) Bounds() voxel.Bounds { return voxel.Bounds{Min: z.Min, Max: z.Max} }

func (z *Zone) Expired(now time.Time) bool {
	return z.ExpiresAt != nil && !now.Before(*z.ExpiresAt)
}

func (z *Zone) Contains(p voxel.Vec3i, dim string) bool {
	return dim == z.Dimension && z.Bounds().Contains(p)
}

func (z *Zone) HasAccess(name string) bool {
	if name == z.Owner {
		return true
	}
	for _, s := range z.SharedWith {
		if s == name {
			return true
		}
	}
	return false
}

// Manager owns the zone list. Like the rest of the sim it is driven from one
// goroutine.
type Manager struct {
	zones []*Zone
	now   func() time.Time
}

func NewManager(now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{now: now}
}

// Create registers a zone spanning a and b. A zero duration never expires.
func (m *Manager) Create(name, owner string, a, b voxel.Vec3i, dim string, duration time.Duration) (*Zone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: zone name must not be empty", config.ErrConfiguration)
	}
	if _, ok := m.Get(name); ok {
		return nil, fmt.Errorf("%w: %s", ErrZoneExists, name)
	}
	bnd := voxel.NewBounds(a, b)
	now := m.now()
	z := &Zone{Name: name, Owner: owner, Min: bnd.Min, Max: bnd.Max, Dimension: dim, CreatedAt: now}
	if duration > 0 {
		exp := now.Add(duration)
		z.ExpiresAt = &exp
	}
	m.zones = append(m.zones, z)
	return z, nil
}

// CreateAt builds a cube of the given radius around center.
func (m *Manager) CreateAt(name, owner string, center voxel.Vec3i, dim string, radius int, duration time.Duration) (*Zone, error) {
	r := voxel.V(radius, radius, radius)
	return m.Create(name, owner, center.Sub(r), center.Add(r), dim, duration)
}

// Get matches names case-insensitively.
func (m *Manager) Get(name string) (*Zone, bool) {
	for _, z := range m.zones {
		if strings.EqualFold(z.Name, name) {
			return z, true
		}
	}
	return nil, false
}

func (m *Manager) Delete(name string) bool {
	for i, z := range m.zones {
		if strings.EqualFold(z.Name, name) {
			m.zones = append(m.zones[:i], m.zones[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Manager) AddBuilder(zone, name string) error {
	z, ok := m.Get(zone)
	if !ok {
		return fmt.Errorf("%w: %s", ErrZoneNotFound, zone)
	}
	if !z.HasAccess(name) {
		z.SharedWith = append(z.SharedWith, name)
		sort.Strings(z.SharedWith)
	}
	return nil
}

func (m *Manager) RemoveBuilder(zone, name string) error {
	z, ok := m.Get(zone)
	if !ok {
		return fmt.Errorf("%w: %s", ErrZoneNotFound, zone)
	}
	out := z.SharedWith[:0]
	for _, s := range z.SharedWith {
		if s != name {
			out = append(out, s)
		}
	}
	z.SharedWith = out
	return nil
}

// At returns the unexpired zones containing p.
func (m *Manager) At(p voxel.Vec3i, dim string) []*Zone {
	now := m.now()
	var out []*Zone
	for _, z := range m.zones {
		if z.Contains(p, dim) && !z.Expired(now) {
			out = append(out, z)
		}
	}
	return out
}

func (m *Manager) CanBuild(name string, p voxel.Vec3i, dim string, bypass bool) bool {
	if bypass {
		return true
	}
	for _, z := range m.At(p, dim) {
		if z.HasAccess(name) {
			return true
		}
	}
	return false
}

// CanBuildBox requires the whole box to sit inside a single zone the actor
// can use.
func (m *Manager) CanBuildBox(name string, b voxel.Bounds, dim string, bypass bool) bool {
	if bypass {
		return true
	}
	now := m.now()
	for _, z := range m.zones {
		if z.Dimension == dim && !z.Expired(now) && z.HasAccess(name) && z.Bounds().ContainsBounds(b) {
			return true
		}
	}
	return false
}

// Sweep drops expired zones and returns them.
func (m *Manager) Sweep() []Zone {
	now := m.now()
	var gone []Zone
	kept := m.zones[:0]
	for _, z := range m.zones {
		if z.Expired(now) {
			gone = append(gone, *z)
			continue
		}
		kept = append(kept, z)
	}
	for i := len(kept); i < len(m.zones); i++ {
		m.zones[i] = nil
	}
	m.zones = kept
	return gone
}

// ForActor lists the zones name owns or shares, sorted by name.
func (m *Manager) ForActor(name string) []Zone {
	var out []Zone
	for _, z := range m.zones {
		if z.HasAccess(name) {
			out = append(out, *z)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Manager) All() []Zone {
	out := make([]Zone, 0, len(m.zones))
	for _, z := range m.zones {
		out = append(out, *z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type fileFormat struct {
	Zones []*Zone `json:"zones"`
}

// Save writes every zone, expired ones included, through a temp file.
func (m *Manager) Save(path string) error {
	b, err := json.MarshalIndent(fileFormat{Zones: m.zones}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load replaces the zone list from path. A missing file leaves it empty.
func (m *Manager) Load(path string) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		m.zones = nil
		return nil
	}
	if err != nil {
		return err
	}
	var f fileFormat
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("zones %s: %w", path, err)
	}
	m.zones = f.Zones
	return nil
}
