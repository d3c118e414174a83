package transform

import (
	"onistone.build/internal/sim/voxel"
)

// Apply returns a rotated and flipped copy of buf. Air is always kept and
// the offset is ignored; only the shape changes.
func Apply(buf *voxel.Buffer, opts PasteOptions) (*voxel.Buffer, error) {
	p := BuildPlan(buf, PasteOptions{Rotation: opts.Rotation, FlipX: opts.FlipX, FlipY: opts.FlipY, FlipZ: opts.FlipZ}, voxel.Vec3i{})
	rw, rh, rl := p.AffectedExtents()
	cells := make([]voxel.Block, rw*rh*rl)
	buf.Each(func(x, y, z int, blk voxel.Block) {
		q := p.Local(x, y, z)
		cells[q.X+q.Z*rw+q.Y*rw*rl] = blk
	})
	out, err := voxel.NewBuffer(rw, rh, rl, cells, buf.Origin())
	if err != nil {
		return nil, err
	}
	return out, nil
}
