// Package shapes generates block positions for the builder's shape tools.
// Every generator walks y, then z, then x, so output order is stable.
package shapes

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"onistone.build/internal/sim/voxel"
)

type Kind string

const (
	KindSphere   Kind = "sphere"
	KindCylinder Kind = "cylinder"
	KindPyramid  Kind = "pyramid"
	KindCuboid   Kind = "cuboid"
	KindWalls    Kind = "walls"
)

// onShell reports whether a cell at distance d lies on a surface of radius r.
func onShell(d float64, r int) bool {
	return math.Abs(d-float64(r)) <= 0.5
}

func Sphere(center voxel.Vec3i, r int, hollow bool) []voxel.Vec3i {
	if r < 0 {
		return nil
	}
	var out []voxel.Vec3i
	for y := -r; y <= r; y++ {
		for z := -r; z <= r; z++ {
			for x := -r; x <= r; x++ {
				d := mgl64.Vec3{float64(x), float64(y), float64(z)}.Len()
				if (hollow && onShell(d, r)) || (!hollow && d <= float64(r)) {
					out = append(out, center.Add(voxel.V(x, y, z)))
				}
			}
		}
	}
	return out
}

// Cylinder stands on base and rises h blocks.
func Cylinder(base voxel.Vec3i, r, h int, hollow bool) []voxel.Vec3i {
	if r < 0 || h < 1 {
		return nil
	}
	var out []voxel.Vec3i
	for y := 0; y < h; y++ {
		for z := -r; z <= r; z++ {
			for x := -r; x <= r; x++ {
				d := mgl64.Vec2{float64(x), float64(z)}.Len()
				if (hollow && onShell(d, r)) || (!hollow && d <= float64(r)) {
					out = append(out, base.Add(voxel.V(x, y, z)))
				}
			}
		}
	}
	return out
}

// Pyramid shrinks its half-width by one per layer, starting at size.
func Pyramid(base voxel.Vec3i, size int, hollow bool) []voxel.Vec3i {
	var out []voxel.Vec3i
	for level := 0; level < size; level++ {
		half := size - level
		for z := -half; z <= half; z++ {
			for x := -half; x <= half; x++ {
				edge := x == -half || x == half || z == -half || z == half
				if hollow && !edge {
					continue
				}
				out = append(out, base.Add(voxel.V(x, level, z)))
			}
		}
	}
	return out
}

// Cuboid fills w*h*l blocks from origin; hollow keeps only the shell.
func Cuboid(origin voxel.Vec3i, w, h, l int, hollow bool) []voxel.Vec3i {
	if w < 1 || h < 1 || l < 1 {
		return nil
	}
	out := make([]voxel.Vec3i, 0, w*h*l)
	for y := 0; y < h; y++ {
		for z := 0; z < l; z++ {
			for x := 0; x < w; x++ {
				if hollow && x > 0 && x < w-1 && y > 0 && y < h-1 && z > 0 && z < l-1 {
					continue
				}
				out = append(out, origin.Add(voxel.V(x, y, z)))
			}
		}
	}
	return out
}

// Walls returns the four vertical faces of b.
func Walls(b voxel.Bounds) []voxel.Vec3i {
	var out []voxel.Vec3i
	for y := b.Min.Y; y <= b.Max.Y; y++ {
		for z := b.Min.Z; z <= b.Max.Z; z++ {
			for x := b.Min.X; x <= b.Max.X; x++ {
				if x == b.Min.X || x == b.Max.X || z == b.Min.Z || z == b.Max.Z {
					out = append(out, voxel.V(x, y, z))
				}
			}
		}
	}
	return out
}

// Extent bounds a position list, reporting false when it is empty.
func Extent(ps []voxel.Vec3i) (voxel.Bounds, bool) {
	if len(ps) == 0 {
		return voxel.Bounds{}, false
	}
	b := voxel.Bounds{Min: ps[0], Max: ps[0]}
	for _, p := range ps[1:] {
		b.Min = voxel.MinVec(b.Min, p)
		b.Max = voxel.MaxVec(b.Max, p)
	}
	return b, true
}
