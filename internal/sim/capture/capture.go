package capture

import (
	"errors"
	"fmt"

	"onistone.build/internal/sim/voxel"
)

// ErrCaptureFailed wraps a world read error hit while capturing a region.
var ErrCaptureFailed = errors.New("capture: region read failed")

// Capture snapshots the inclusive cuboid b into a Buffer anchored at origin.
// Cells are read y, then z, then x so that they land in Buffer index order.
// Air is always stored; includeAir only matters when the buffer is placed.
// The first read error aborts the capture.
func Capture(r voxel.BlockReader, b voxel.Bounds, origin voxel.Vec3i) (*voxel.Buffer, error) {
	w, h, l := b.Dims()
	cells := make([]voxel.Block, 0, w*h*l)
	for y := b.Min.Y; y <= b.Max.Y; y++ {
		for z := b.Min.Z; z <= b.Max.Z; z++ {
			for x := b.Min.X; x <= b.Max.X; x++ {
				blk, err := r.BlockAt(voxel.Vec3i{X: x, Y: y, Z: z})
				if err != nil {
					return nil, fmt.Errorf("%w at (%d,%d,%d): %w", ErrCaptureFailed, x, y, z, err)
				}
				cells = append(cells, blk)
			}
		}
	}
	return voxel.NewBuffer(w, h, l, cells, origin)
}
