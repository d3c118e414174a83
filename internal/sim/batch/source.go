package batch

import "onistone.build/internal/sim/voxel"

// Source is a finite stream of placements. Len is the expected number of
// elements; Next reports false once the stream is exhausted.
type Source interface {
	Len() int
	Next() (voxel.Placement, bool)
}

type SliceSource struct {
	items []voxel.Placement
	i     int
}

func NewSliceSource(items []voxel.Placement) *SliceSource {
	return &SliceSource{items: items}
}

// Fill places the same block at every position.
func Fill(positions []voxel.Vec3i, b voxel.Block) *SliceSource {
	items := make([]voxel.Placement, len(positions))
	for i, p := range positions {
		items[i] = voxel.Placement{Pos: p, Block: b}
	}
	return NewSliceSource(items)
}

func (s *SliceSource) Len() int { return len(s.items) }

func (s *SliceSource) Next() (voxel.Placement, bool) {
	if s.i >= len(s.items) {
		return voxel.Placement{}, false
	}
	p := s.items[s.i]
	s.i++
	return p, true
}
