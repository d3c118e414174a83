package zones

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"onistone.build/internal/sim/voxel"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newManager() (*Manager, *fakeClock) {
	c := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	return NewManager(c.Now), c
}

func TestCreateAndAccess(t *testing.T) {
	m, _ := newManager()
	if _, err := m.CreateAt("Plaza", "alex", voxel.V(0, 64, 0), "overworld", 4, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Create("plaza", "bo", voxel.V(0, 0, 0), voxel.V(1, 1, 1), "overworld", 0); !errors.Is(err, ErrZoneExists) {
		t.Fatalf("expected ErrZoneExists, got %v", err)
	}
	in := voxel.V(3, 60, -4)
	if !m.CanBuild("alex", in, "overworld", false) {
		t.Fatal("owner denied")
	}
	if m.CanBuild("bo", in, "overworld", false) {
		t.Fatal("stranger allowed")
	}
	if m.CanBuild("alex", in, "nether", false) {
		t.Fatal("wrong dimension allowed")
	}
	if !m.CanBuild("bo", voxel.V(1000, 0, 0), "nether", true) {
		t.Fatal("bypass denied")
	}
	if err := m.AddBuilder("PLAZA", "bo"); err != nil {
		t.Fatal(err)
	}
	if !m.CanBuild("bo", in, "overworld", false) {
		t.Fatal("shared builder denied")
	}
	_ = m.RemoveBuilder("plaza", "bo")
	if m.CanBuild("bo", in, "overworld", false) {
		t.Fatal("removed builder still allowed")
	}
	if err := m.AddBuilder("nowhere", "bo"); !errors.Is(err, ErrZoneNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestCanBuildBoxNeedsOneZone(t *testing.T) {
	m, _ := newManager()
	_, _ = m.Create("west", "alex", voxel.V(0, 0, 0), voxel.V(9, 9, 9), "overworld", 0)
	_, _ = m.Create("east", "alex", voxel.V(10, 0, 0), voxel.V(19, 9, 9), "overworld", 0)
	inside := voxel.NewBounds(voxel.V(1, 1, 1), voxel.V(8, 8, 8))
	straddle := voxel.NewBounds(voxel.V(5, 1, 1), voxel.V(15, 8, 8))
	if !m.CanBuildBox("alex", inside, "overworld", false) {
		t.Fatal("inside box denied")
	}
	if m.CanBuildBox("alex", straddle, "overworld", false) {
		t.Fatal("box across two zones allowed")
	}
}

func TestExpiryAndSweep(t *testing.T) {
	m, clock := newManager()
	_, _ = m.CreateAt("temp", "alex", voxel.V(0, 0, 0), "overworld", 2, time.Hour)
	_, _ = m.CreateAt("perm", "alex", voxel.V(100, 0, 0), "overworld", 2, 0)
	if len(m.At(voxel.V(0, 0, 0), "overworld")) != 1 {
		t.Fatal("zone not found before expiry")
	}
	clock.t = clock.t.Add(time.Hour)
	if len(m.At(voxel.V(0, 0, 0), "overworld")) != 0 {
		t.Fatal("expired zone still matches")
	}
	gone := m.Sweep()
	if len(gone) != 1 || gone[0].Name != "temp" {
		t.Fatalf("swept=%v", gone)
	}
	if _, ok := m.Get("temp"); ok {
		t.Fatal("expired zone kept")
	}
	if len(m.ForActor("alex")) != 1 {
		t.Fatalf("zones=%v", m.ForActor("alex"))
	}
}

func TestSaveLoad(t *testing.T) {
	m, _ := newManager()
	_, _ = m.CreateAt("a", "alex", voxel.V(1, 2, 3), "overworld", 5, 12*time.Hour)
	_ = m.AddBuilder("a", "bo")
	path := filepath.Join(t.TempDir(), "zones", "zones.json")
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}
	other, _ := newManager()
	if err := other.Load(path); err != nil {
		t.Fatal(err)
	}
	z, ok := other.Get("A")
	if !ok || z.Min != voxel.V(-4, -3, -2) || z.ExpiresAt == nil || !z.HasAccess("bo") {
		t.Fatalf("loaded %+v", z)
	}
	if err := other.Load(filepath.Join(t.TempDir(), "missing.json")); err != nil || len(other.All()) != 0 {
		t.Fatalf("missing file: %v", err)
	}
}
