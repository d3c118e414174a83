package shapes

import (
	"testing"

	"onistone.build/internal/sim/voxel"
)

func TestSphereCounts(t *testing.T) {
	if n := len(Sphere(voxel.V(0, 0, 0), 0, false)); n != 1 {
		t.Fatalf("r=0 sphere=%d", n)
	}
	// r=1: the centre plus the six face neighbours.
	if n := len(Sphere(voxel.V(5, 5, 5), 1, false)); n != 7 {
		t.Fatalf("r=1 sphere=%d", n)
	}
	solid := Sphere(voxel.V(0, 64, 0), 4, false)
	hollow := Sphere(voxel.V(0, 64, 0), 4, true)
	if len(hollow) >= len(solid) || len(hollow) == 0 {
		t.Fatalf("solid=%d hollow=%d", len(solid), len(hollow))
	}
	for _, p := range hollow {
		if p == voxel.V(0, 64, 0) {
			t.Fatal("hollow sphere contains centre")
		}
	}
}

func TestCylinderAndCuboid(t *testing.T) {
	c := Cylinder(voxel.V(0, 0, 0), 1, 3, false)
	if len(c) != 15 {
		t.Fatalf("cylinder=%d want 15", len(c))
	}
	if b, _ := Extent(c); b.Min.Y != 0 || b.Max.Y != 2 {
		t.Fatalf("cylinder extent %s", b)
	}
	if n := len(Cuboid(voxel.V(0, 0, 0), 3, 3, 3, false)); n != 27 {
		t.Fatalf("cuboid=%d", n)
	}
	if n := len(Cuboid(voxel.V(0, 0, 0), 3, 3, 3, true)); n != 26 {
		t.Fatalf("hollow cuboid=%d", n)
	}
}

func TestPyramidLayers(t *testing.T) {
	p := Pyramid(voxel.V(0, 0, 0), 2, false)
	// 5x5 then 3x3.
	if len(p) != 34 {
		t.Fatalf("pyramid=%d", len(p))
	}
	h := Pyramid(voxel.V(0, 0, 0), 2, true)
	// 16 edge cells then 8.
	if len(h) != 24 {
		t.Fatalf("hollow pyramid=%d", len(h))
	}
	if p[0] != voxel.V(-2, 0, -2) {
		t.Fatalf("first=%s", p[0])
	}
}

func TestWalls(t *testing.T) {
	w := Walls(voxel.NewBounds(voxel.V(0, 0, 0), voxel.V(2, 1, 2)))
	if len(w) != 16 {
		t.Fatalf("walls=%d", len(w))
	}
}

func TestExtentEmpty(t *testing.T) {
	if _, ok := Extent(nil); ok {
		t.Fatal("empty extent")
	}
}
