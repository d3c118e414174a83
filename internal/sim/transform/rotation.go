package transform

import (
	"fmt"

	"onistone.build/internal/config"
	"onistone.build/internal/sim/voxel"
)

// Rotation is a clockwise quarter-turn count about the Y axis, in [0,3].
type Rotation int

const (
	Rot0 Rotation = iota
	Rot90
	Rot180
	Rot270
)

// NormalizeRotation converts degrees into a quarter-turn count. Negative
// values and multiples of 360 wrap; anything that is not a multiple of 90 is
// rejected.
func NormalizeRotation(deg int) (Rotation, error) {
	if deg%90 != 0 {
		return 0, fmt.Errorf("%w: rotation must be a multiple of 90, got %d", config.ErrConfiguration, deg)
	}
	r := (deg / 90) % 4
	if r < 0 {
		r += 4
	}
	return Rotation(r), nil
}

func (r Rotation) Degrees() int { return int(r&3) * 90 }

// SwapsAxes reports whether the rotation exchanges the X and Z extents.
func (r Rotation) SwapsAxes() bool { return r&1 == 1 }

// RotateLocal rotates a buffer-local coordinate about the buffer's origin
// corner. w and l are the extents as captured.
func RotateLocal(p voxel.Vec3i, r Rotation, w, l int) voxel.Vec3i {
	switch r & 3 {
	case Rot90:
		return voxel.Vec3i{X: l - 1 - p.Z, Y: p.Y, Z: p.X}
	case Rot180:
		return voxel.Vec3i{X: w - 1 - p.X, Y: p.Y, Z: l - 1 - p.Z}
	case Rot270:
		return voxel.Vec3i{X: p.Z, Y: p.Y, Z: w - 1 - p.X}
	default:
		return p
	}
}

// RotatedExtents returns the bounding extents after rotation.
func RotatedExtents(w, h, l int, r Rotation) (int, int, int) {
	if r.SwapsAxes() {
		return l, h, w
	}
	return w, h, l
}
