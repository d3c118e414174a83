package store

import (
	"errors"
	"testing"

	"onistone.build/internal/sim/voxel"
)

func TestSetGetAcrossChunkBoundaries(t *testing.T) {
	w := New("overworld", Limits{MinY: -64, MaxY: 319})
	stone := voxel.Block{Type: "minecraft:stone"}
	for _, p := range []voxel.Vec3i{voxel.V(0, 0, 0), voxel.V(-1, -1, -1), voxel.V(15, 16, -17), voxel.V(-33, 100, 47)} {
		if err := w.SetBlock(p, stone); err != nil {
			t.Fatalf("set %s: %v", p, err)
		}
		got, err := w.BlockAt(p)
		if err != nil {
			t.Fatalf("get %s: %v", p, err)
		}
		if !got.Equal(stone) {
			t.Fatalf("%s: got %s", p, got)
		}
	}
	if got, _ := w.BlockAt(voxel.V(1, 0, 0)); !got.IsAir() {
		t.Fatalf("expected air neighbour, got %s", got)
	}
}

func TestAirWriteDropsEmptyChunk(t *testing.T) {
	w := New("overworld", Limits{})
	p := voxel.V(3, 4, 5)
	_ = w.SetBlock(p, voxel.Block{Type: "minecraft:dirt"})
	if n := len(w.LoadedChunkKeys()); n != 1 {
		t.Fatalf("chunks=%d", n)
	}
	_ = w.SetBlock(p, voxel.Air)
	if n := len(w.LoadedChunkKeys()); n != 0 {
		t.Fatalf("chunks after clear=%d", n)
	}
}

func TestAuxRoundTrip(t *testing.T) {
	w := New("overworld", Limits{})
	p := voxel.V(1, 1, 1)
	chest := voxel.Block{Type: "minecraft:chest", Aux: map[string]any{"items": 3}}
	_ = w.SetBlock(p, chest)
	got, _ := w.BlockAt(p)
	if got.Aux["items"] != 3 {
		t.Fatalf("aux lost: %+v", got)
	}
	_ = w.SetBlock(p, voxel.Block{Type: "minecraft:chest"})
	got, _ = w.BlockAt(p)
	if got.Aux != nil {
		t.Fatalf("aux not cleared: %+v", got)
	}
}

func TestBoundsAndInjectedFailures(t *testing.T) {
	w := New("overworld", Limits{BoundaryR: 10, MinY: 0, MaxY: 20})
	if _, err := w.BlockAt(voxel.V(11, 0, 0)); !errors.Is(err, voxel.ErrAccess) {
		t.Fatalf("expected ErrAccess, got %v", err)
	}
	if err := w.SetBlock(voxel.V(0, 21, 0), voxel.Block{Type: "minecraft:stone"}); !errors.Is(err, voxel.ErrWrite) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}
	if err := w.SetBlock(voxel.V(0, 0, 0), voxel.Block{}); !errors.Is(err, voxel.ErrWrite) {
		t.Fatalf("expected ErrWrite for empty type, got %v", err)
	}

	bad := voxel.V(2, 2, 2)
	w.FailReads = func(p voxel.Vec3i) bool { return p == bad }
	w.FailWrites = func(p voxel.Vec3i, _ voxel.Block) bool { return p == bad }
	if _, err := w.BlockAt(bad); !errors.Is(err, voxel.ErrAccess) {
		t.Fatalf("injected read: %v", err)
	}
	if err := w.SetBlock(bad, voxel.Block{Type: "minecraft:stone"}); !errors.Is(err, voxel.ErrWrite) {
		t.Fatalf("injected write: %v", err)
	}
}

func TestWorldsDimension(t *testing.T) {
	ws := Worlds{"overworld": New("overworld", Limits{})}
	if d, ok := ws.Dimension("overworld"); !ok || d.DimensionID() != "overworld" {
		t.Fatalf("lookup failed")
	}
	if _, ok := ws.Dimension("nether"); ok {
		t.Fatalf("unexpected dimension")
	}
}
