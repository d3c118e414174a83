package transform

import (
	"onistone.build/internal/sim/voxel"
)

// Plan is a lazy placement of a buffer at a world target. It holds no
// iteration state, so any number of cursors can walk it.
type Plan struct {
	buf    *voxel.Buffer
	opts   PasteOptions
	target voxel.Vec3i

	rw, rh, rl int
}

// BuildPlan places buf at target under opts. No cells are visited until a
// Cursor walks the plan.
func BuildPlan(buf *voxel.Buffer, opts PasteOptions, target voxel.Vec3i) *Plan {
	w, h, l := buf.Dims()
	rw, rh, rl := RotatedExtents(w, h, l, opts.Rotation)
	return &Plan{buf: buf, opts: opts, target: target, rw: rw, rh: rh, rl: rl}
}

func (p *Plan) Options() PasteOptions { return p.opts }
func (p *Plan) Target() voxel.Vec3i   { return p.target }

// Local maps a buffer coordinate to its rotated and flipped local position.
// Flips use the rotated extents so the result always lies inside
// AffectedExtents.
func (p *Plan) Local(x, y, z int) voxel.Vec3i {
	w, _, l := p.buf.Dims()
	q := RotateLocal(voxel.Vec3i{X: x, Y: y, Z: z}, p.opts.Rotation, w, l)
	if p.opts.FlipX {
		q.X = p.rw - 1 - q.X
	}
	if p.opts.FlipY {
		q.Y = p.rh - 1 - q.Y
	}
	if p.opts.FlipZ {
		q.Z = p.rl - 1 - q.Z
	}
	return q
}

// World maps a buffer coordinate to its final world position.
func (p *Plan) World(x, y, z int) voxel.Vec3i {
	return p.Local(x, y, z).Add(p.opts.Offset).Add(p.target)
}

// EstimateBlockCount is the number of placements a full walk yields.
func (p *Plan) EstimateBlockCount() int {
	if p.opts.PlaceAir {
		return p.buf.Len()
	}
	return p.buf.NonAirCount()
}

// AffectedVolume is the rotated bounding volume, air cells included.
func (p *Plan) AffectedVolume() int {
	return p.rw * p.rh * p.rl
}

func (p *Plan) AffectedExtents() (w, h, l int) {
	return p.rw, p.rh, p.rl
}

// Bounds is the world-space box the plan can touch, air cells included.
func (p *Plan) Bounds() voxel.Bounds {
	lo := p.target.Add(p.opts.Offset)
	return voxel.Bounds{Min: lo, Max: lo.Add(voxel.Vec3i{X: p.rw - 1, Y: p.rh - 1, Z: p.rl - 1})}
}

func (p *Plan) Cursor() *Cursor {
	return &Cursor{plan: p, n: p.EstimateBlockCount()}
}

// Placements materialises the whole plan.
func (p *Plan) Placements() []voxel.Placement {
	c := p.Cursor()
	out := make([]voxel.Placement, 0, c.Len())
	for {
		pl, ok := c.Next()
		if !ok {
			return out
		}
		out = append(out, pl)
	}
}

// Cursor walks a plan in buffer order.
type Cursor struct {
	plan *Plan
	i    int
	n    int
}

func (c *Cursor) Len() int { return c.n }

func (c *Cursor) Next() (voxel.Placement, bool) {
	buf := c.plan.buf
	for c.i < buf.Len() {
		x, y, z, blk := buf.CellAt(c.i)
		c.i++
		if !c.plan.opts.PlaceAir && blk.IsAir() {
			continue
		}
		return voxel.Placement{Pos: c.plan.World(x, y, z), Block: blk}, true
	}
	return voxel.Placement{}, false
}
